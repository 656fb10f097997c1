package webserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agusx1211/dtrack/internal/debug"
	"github.com/agusx1211/dtrack/internal/tracker"
	"github.com/agusx1211/dtrack/pkg/protocol"
)

const defaultPort = 3000

// Options configures web server behavior.
type Options struct {
	Host      string
	Port      int
	TLSMode   string
	CertFile  string
	KeyFile   string
	AuthToken string
	RateLimit float64
}

// Server hosts the tracker HTTP API and the live event WebSocket.
type Server struct {
	tracker    *tracker.Service
	httpServer *http.Server
	port       int
	host       string
	tlsMode    string
	certFile   string
	keyFile    string
	authToken  string
	rateLimit  float64
}

// New constructs a web server over svc.
func New(svc *tracker.Service, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "127.0.0.1"
	}

	port := opts.Port
	if port < 0 {
		port = defaultPort
	}

	srv := &Server{
		tracker:   svc,
		host:      host,
		port:      port,
		tlsMode:   strings.TrimSpace(opts.TLSMode),
		certFile:  strings.TrimSpace(opts.CertFile),
		keyFile:   strings.TrimSpace(opts.KeyFile),
		authToken: strings.TrimSpace(opts.AuthToken),
		rateLimit: opts.RateLimit,
	}

	mux := http.NewServeMux()
	srv.setupRoutes(mux)

	handler := corsMiddleware(requestIDMiddleware(logMiddleware(rateLimitMiddleware(srv.rateLimit, authMiddleware(srv.authToken, mux)))))
	srv.httpServer = &http.Server{
		Addr:              srv.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv
}

// Start starts the server in a background goroutine and returns immediately.
func (srv *Server) Start() error {
	if srv.httpServer == nil {
		return fmt.Errorf("webserver not initialized")
	}

	if srv.tlsMode != "" {
		var cert tls.Certificate
		var err error

		switch srv.tlsMode {
		case "self-signed":
			cert, err = generateSelfSignedCert(srv.host)
			if err != nil {
				return fmt.Errorf("generating self-signed certificate: %w", err)
			}
		case "custom":
			cert, err = tls.LoadX509KeyPair(srv.certFile, srv.keyFile)
			if err != nil {
				return fmt.Errorf("loading TLS certificate: %w", err)
			}
		default:
			return fmt.Errorf("unsupported TLS mode: %q", srv.tlsMode)
		}

		srv.httpServer.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
	}

	ln, err := net.Listen("tcp", srv.Addr())
	if err != nil {
		return err
	}

	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		srv.port = tcpAddr.Port
		srv.httpServer.Addr = srv.Addr()
	}
	debug.LogKV("webserver", "listening", "addr", srv.Addr(), "tls", srv.tlsMode)

	go func() {
		var err error
		if srv.tlsMode != "" {
			err = srv.httpServer.ServeTLS(ln, "", "")
		} else {
			err = srv.httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			debug.LogKV("webserver", "server stopped with error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the HTTP server.
func (srv *Server) Shutdown(ctx context.Context) error {
	if srv.httpServer == nil {
		return nil
	}
	return srv.httpServer.Shutdown(ctx)
}

// Addr returns the bound host:port address.
func (srv *Server) Addr() string {
	return net.JoinHostPort(srv.host, strconv.Itoa(srv.port))
}

// Port returns the bound port, which is only final after Start.
func (srv *Server) Port() int { return srv.port }

// Scheme returns the URL scheme for the running server.
func (srv *Server) Scheme() string {
	if srv.tlsMode != "" {
		return "https"
	}
	return "http"
}

func (srv *Server) setupRoutes(mux *http.ServeMux) {
	// Scoped routes, then the bare root form older clients still call.
	srv.registerAPIRoutes(mux, protocol.APIPrefix)
	srv.registerAPIRoutes(mux, "")

	mux.HandleFunc("GET "+protocol.PathEvents, srv.handleEventsWebSocket)

	// Catch-all for unknown API routes
	mux.HandleFunc(protocol.APIPrefix+"/{rest...}", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

// registerAPIRoutes registers the tracker API under prefix ("/api" or "").
func (srv *Server) registerAPIRoutes(mux *http.ServeMux, prefix string) {
	mux.HandleFunc("POST "+prefix+protocol.PathUpdate, srv.handleUpdate)
	mux.HandleFunc("GET "+prefix+protocol.PathStats, srv.handleStats)
	mux.HandleFunc("GET "+prefix+protocol.PathHealth, srv.handleHealth)

	mux.HandleFunc("GET "+prefix+protocol.PathDay, srv.handleDay)
	mux.HandleFunc("GET "+prefix+protocol.PathTasks, srv.handleTasks)
	mux.HandleFunc("GET "+prefix+protocol.PathGrid, srv.handleGrid)
	mux.HandleFunc("GET "+prefix+protocol.PathInsights, srv.handleInsights)
}
