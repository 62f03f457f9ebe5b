package linear

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/notisapp/notis/internal/logging"
)

// callbackPage is shown in the browser tab once the redirect lands.
const callbackPage = `<!doctype html>
<html>
  <head><title>Notis</title></head>
  <body style="font-family: sans-serif; text-align: center; padding-top: 4rem;">
    <p>Authorization received. You can close this tab and return to Notis.</p>
  </body>
</html>`

// CallbackServer listens on the loopback interface for the OAuth
// redirect. It fills the interactive-flow role the browser identity API
// plays for the extension itself.
type CallbackServer struct {
	// Port is the loopback port to bind.
	Port int

	// Path is the redirect path, normally /oauth/callback.
	Path string
}

// WaitForCallback serves exactly one redirect request and returns its
// full URL. When ctx ends before any redirect arrives, it returns an
// empty URL and no error (the abandoned-flow case).
func (s *CallbackServer) WaitForCallback(ctx context.Context) (string, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", s.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	path := s.Path
	if path == "" {
		path = "/oauth/callback"
	}

	urls := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(callbackPage))

		select {
		case urls <- "http://" + addr + r.URL.String():
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logging.Debug("callback server stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	select {
	case callbackURL := <-urls:
		return callbackURL, nil
	case <-ctx.Done():
		return "", nil
	}
}
