package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// profile is the on-disk configuration read by --config:
//
//	account   = "023e105f4ecef8ad9ca31a8372d0c353"
//	token     = "..."
//	namespace = "0f2ac74b498b48028cb68387c421e279"
//	api_url   = "https://api.cloudflare.com/client/v4"
type profile struct {
	Account   string `toml:"account"`
	Token     string `toml:"token"`
	Namespace string `toml:"namespace"`
	APIURL    string `toml:"api_url"`
}

func defaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cfkv", "config.toml")
}

// loadProfile reads path, or the default location when path is empty. A
// missing default file yields an empty profile; a missing explicit file is
// an error.
func loadProfile(path string) (profile, error) {
	var prof profile
	explicit := path != ""
	if !explicit {
		path = defaultProfilePath()
		if path == "" {
			return prof, nil
		}
	}
	if _, err := toml.DecodeFile(path, &prof); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return profile{}, nil
		}
		return profile{}, fmt.Errorf("read profile %s: %w", path, err)
	}
	return prof, nil
}
