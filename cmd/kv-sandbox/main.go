package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cfkv/workers-kv-go/internal/cfapi"
	"github.com/cfkv/workers-kv-go/pkg/kv/mock"
)

type failConfig struct {
	rate float64
	code int
}

const apiPrefix = "/client/v4"

func main() {
	addr := flag.String("addr", ":8787", "listen address")
	seedPath := flag.String("seed", "", "path to TOML seed for the emulator")
	account := flag.String("account", "sandbox-account", "account id accepted by the emulator")
	token := flag.String("token", "sandbox-token", "bearer token accepted by the emulator")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	verbose := flag.Bool("v", false, "log every request")
	flag.Parse()

	store := mock.NewStore()
	var seeded []mock.NamespaceInfo
	if *seedPath != "" {
		seed, err := mock.LoadSeed(*seedPath)
		if err != nil {
			log.Fatalf("load seed: %v", err)
		}
		seeded, err = store.Apply(seed)
		if err != nil {
			log.Fatalf("apply seed: %v", err)
		}
	}

	failCfg, err := parseFailConfig(*fail)
	if err != nil {
		log.Fatalf("parse fail flag: %v", err)
	}

	if *verbose {
		mock.InfoLogger.SetOutput(os.Stderr)
	}

	mux := http.NewServeMux()
	mux.Handle(apiPrefix+"/", withMiddleware(*latency, failCfg, mock.NewServer(store, *account, *token)))

	server := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("kv-sandbox listening on %s", *addr)
	for _, ns := range seeded {
		log.Printf("seeded namespace %q (%s)", ns.Title, ns.ID)
	}
	fmt.Println()
	for _, line := range exportLines(*addr, *account, *token, seeded) {
		fmt.Println(line)
	}
	fmt.Println()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}

// exportLines returns the shell exports that point kv.NewFromEnv at the
// sandbox.
func exportLines(addr, account, token string, seeded []mock.NamespaceInfo) []string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	lines := []string{
		"export KV_RUNTIME_MODE=http",
		fmt.Sprintf("export CF_API_URL=http://%s%s", host, apiPrefix),
		"export CF_ACCOUNT_ID=" + account,
		"export CF_API_TOKEN=" + token,
	}
	if len(seeded) > 0 {
		lines = append(lines, "export CF_KV_NAMESPACE_ID="+seeded[0].ID)
	}
	return lines
}

func withMiddleware(delay time.Duration, failCfg failConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			time.Sleep(delay)
		}
		if failCfg.rate > 0 && rand.Float64() < failCfg.rate {
			status := failCfg.code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			writeInjectedFailure(w, status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeInjectedFailure answers with a service envelope so clients exercise
// their error mapping rather than the non-envelope path.
func writeInjectedFailure(w http.ResponseWriter, status int) {
	body, err := cfapi.Failure(status, "failure injected")
	if err != nil {
		http.Error(w, "failure injected", status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	parts := strings.Split(raw, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keyVal := strings.SplitN(part, "=", 2)
		if len(keyVal) != 2 {
			return failConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		switch strings.TrimSpace(keyVal[0]) {
		case "rate":
			val, err := strconv.ParseFloat(strings.TrimSpace(keyVal[1]), 64)
			if err != nil {
				return failConfig{}, err
			}
			if val < 0 || val > 1 {
				return failConfig{}, fmt.Errorf("fail rate %v out of range [0,1]", val)
			}
			cfg.rate = val
		case "code":
			val, err := strconv.Atoi(strings.TrimSpace(keyVal[1]))
			if err != nil {
				return failConfig{}, err
			}
			if val < 100 || val > 599 {
				return failConfig{}, fmt.Errorf("fail code %d is not an HTTP status", val)
			}
			cfg.code = val
		default:
			return failConfig{}, fmt.Errorf("unknown fail key %q", keyVal[0])
		}
	}
	return cfg, nil
}
