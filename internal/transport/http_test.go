package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPTransport_Serve_HandlesRequestAndHealth(t *testing.T) {
	cfg := DefaultHTTPConfig()
	cfg.Port = 18765
	tr := NewHTTPTransport(cfg, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Serve(ctx, echoHandler) }()
	time.Sleep(50 * time.Millisecond)

	body, _ := json.Marshal(Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "ping"})
	resp, err := http.Post("http://127.0.0.1:18765/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Nil(t, decoded.Error)

	health, err := http.Get("http://127.0.0.1:18765/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not shut down after context cancellation")
	}
}

func TestHTTPTransport_Serve_RunsCredentialParserBeforeDispatch(t *testing.T) {
	cfg := DefaultHTTPConfig()
	cfg.Port = 18767

	type credKey struct{}
	var sawCred string
	cfg.CredentialParser = func(ctx context.Context, r *http.Request) context.Context {
		return context.WithValue(ctx, credKey{}, r.Header.Get("X-API-Key"))
	}
	captureHandler := func(ctx CallContext, req Request) Response {
		sawCred, _ = ctx.Value(credKey{}).(string)
		return NewResult(req.ID, "ok")
	}

	tr := NewHTTPTransport(cfg, zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tr.Serve(ctx, captureHandler) }()
	time.Sleep(50 * time.Millisecond)

	body, _ := json.Marshal(Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "ping"})
	req, err := http.NewRequest(http.MethodPost, "http://127.0.0.1:18767/", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "key-id:key-secret")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "key-id:key-secret", sawCred)
}

func TestHTTPTransport_RejectsNonPost(t *testing.T) {
	cfg := DefaultHTTPConfig()
	cfg.Port = 18766
	tr := NewHTTPTransport(cfg, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = tr.Serve(ctx, echoHandler) }()
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Get("http://127.0.0.1:18766/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
