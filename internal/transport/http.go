package transport

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// CredentialParser extracts a transport-level credential from an incoming
// HTTP request and attaches it to the context handed to the handler. It is
// optional and domain-agnostic: transport has no notion of what a
// credential is, only that something may want to stash one in the
// context before dispatch.
type CredentialParser func(ctx context.Context, r *http.Request) context.Context

// HTTPConfig configures the HTTP transport's binding and request handling.
type HTTPConfig struct {
	Host            string
	Port            int
	Path            string
	MaxBodyBytes    int64
	RequestQueueCap int

	// CredentialParser, when set, runs before every dispatched request.
	CredentialParser CredentialParser
}

// DefaultHTTPConfig matches spec §6's defaults.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Host:            "127.0.0.1",
		Port:            8000,
		Path:            "/",
		MaxBodyBytes:    1 << 20,
		RequestQueueCap: 64,
	}
}

// HTTPTransport serves the same JSON-RPC-style message shape over HTTP,
// one request per body, one response per body — no streaming.
type HTTPTransport struct {
	cfg    HTTPConfig
	logger *zap.SugaredLogger
	server *http.Server
}

// NewHTTPTransport constructs (but does not start) an HTTP transport.
func NewHTTPTransport(cfg HTTPConfig, logger *zap.SugaredLogger) *HTTPTransport {
	return &HTTPTransport{cfg: cfg, logger: logger}
}

// Serve blocks, serving requests until ctx is canceled.
func (t *HTTPTransport) Serve(ctx context.Context, handler Handler) error {
	mux := http.NewServeMux()
	mux.HandleFunc(t.cfg.Path, t.requestHandler(handler))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	addr := fmtAddr(t.cfg.Host, t.cfg.Port)
	t.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- t.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func fmtAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (t *HTTPTransport) requestHandler(handler Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, t.cfg.MaxBodyBytes)
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, NewError(nil, "validation", "malformed request body", nil))
			return
		}

		ctx := r.Context()
		if t.cfg.CredentialParser != nil {
			ctx = t.cfg.CredentialParser(ctx, r)
		}

		resp := handler(ctx, req)
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
