package ipc

import (
	"context"
	"net"
	"net/http"
)

// Server wraps an HTTP server with court-specific routing.
type Server struct {
	httpServer *http.Server
}

// NewServer creates a Server that binds to the given address.
func NewServer(h *Handler, listenAddr string) *Server {
	mux := http.NewServeMux()

	// Health and content.
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/catalog", h.GetCatalog)

	// Session lifecycle.
	mux.HandleFunc("GET /api/v1/sessions", h.ListSessions)
	mux.HandleFunc("POST /api/v1/session", h.CreateSession)
	mux.HandleFunc("GET /api/v1/session/{id}", h.GetSession)
	mux.HandleFunc("DELETE /api/v1/session/{id}", h.CloseSession)
	mux.HandleFunc("GET /api/v1/session/{id}/record", h.GetRecord)

	// Actions.
	mux.HandleFunc("POST /api/v1/session/{id}/choice", h.SelectChoice)
	mux.HandleFunc("POST /api/v1/session/{id}/advance", h.AdvanceDay)
	mux.HandleFunc("POST /api/v1/session/{id}/tax", h.SetTax)

	// Event endpoints.
	mux.HandleFunc("GET /api/v1/session/{id}/events", h.ListEvents)
	mux.HandleFunc("GET /api/v1/session/{id}/events/stream", h.StreamEvents)
	mux.HandleFunc("GET /api/v1/session/{id}/ws", NewWSServer(h.Manager, h.Logger).Handler())

	// History.
	mux.HandleFunc("GET /api/v1/session/{id}/snapshots", h.ListSnapshots)
	mux.HandleFunc("GET /api/v1/session/{id}/snapshots/latest", h.LatestSnapshot)
	mux.HandleFunc("GET /api/v1/session/{id}/audit", h.ListAudit)
	mux.HandleFunc("GET /api/v1/session/{id}/ledger", h.GetLedger)

	srv := &http.Server{
		Addr:    listenAddr,
		Handler: corsMiddleware(mux),
	}

	return &Server{
		httpServer: srv,
	}
}

// Start begins listening for HTTP connections. Blocks until the server stops.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for browser front ends served elsewhere.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// FormatListenURL turns a listen address into a URL a browser can open.
// An empty or unspecified host becomes localhost.
func FormatListenURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
