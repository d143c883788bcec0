package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/img2video-api/internal/config"
)

func TestNewHTTPServer_WriteTimeoutCoversTranscode(t *testing.T) {
	cfg := &config.Config{Port: 9090, TranscodeTimeout: 2 * time.Minute, KillGrace: 2 * time.Second}

	srv := newHTTPServer(cfg, http.NotFoundHandler())

	assert.Equal(t, ":9090", srv.Addr)
	// Queue wait defaults to the transcode timeout.
	assert.Equal(t, 2*time.Minute+2*time.Minute+2*time.Second+writeSlack, srv.WriteTimeout)

	cfg.QueueTimeout = 10 * time.Second
	srv = newHTTPServer(cfg, http.NotFoundHandler())
	assert.Equal(t, 10*time.Second+2*time.Minute+2*time.Second+writeSlack, srv.WriteTimeout)
	assert.NotZero(t, srv.ReadHeaderTimeout)
}

func TestServe_StopsOnContextDone(t *testing.T) {
	cfg := &config.Config{Port: 0, TranscodeTimeout: time.Second, KillGrace: time.Second}
	srv := newHTTPServer(cfg, http.NotFoundHandler())
	srv.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, serve(ctx, srv, logger))
}
