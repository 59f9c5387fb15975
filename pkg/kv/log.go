package kv

import (
	"io"
	"log"
)

// DebugLogger traces every request and its outcome. Call SetOutput on it to
// enable debug logging.
var DebugLogger = log.New(io.Discard, "[workers-kv][debug] ", log.LstdFlags)
