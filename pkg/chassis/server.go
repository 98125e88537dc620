// Package chassis runs the framedex API on one port over two transports:
//   - TCP: HTTP/1.1 and HTTP/2 over TLS, or plain HTTP when TLS is off
//   - UDP: QUIC, demuxed by ALPN into HTTP/3 ("h3") and MCP sessions
//     ("framedex-mcp-v1")
//
// HTTP responses advertise HTTP/3 through Alt-Svc. Without a certificate pair
// a self-signed development certificate is generated.
package chassis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"

	"github.com/hazyhaar/framedex/pkg/mcpquic"
)

// Config holds configuration for the chassis server.
type Config struct {
	Addr string
	// Plain serves HTTP/1.1 on TCP without TLS and disables QUIC.
	Plain     bool
	TLS       *tls.Config
	CertFile  string
	KeyFile   string
	Handler   http.Handler
	MCPServer *server.MCPServer // nil disables MCP over QUIC
	Logger    *slog.Logger
}

// Server is the dual-transport chassis.
type Server struct {
	addr       string
	plain      bool
	logger     *slog.Logger
	tlsCfg     *tls.Config
	handler    http.Handler
	mcpHandler *mcpquic.Handler

	mu        sync.Mutex
	tcpServer *http.Server
	h3Server  *http3.Server
	quicLn    *quic.Listener
}

// New prepares a server; nothing listens until Start.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Handler == nil {
		return nil, errors.New("chassis: nil handler")
	}

	s := &Server{
		addr:    cfg.Addr,
		plain:   cfg.Plain,
		logger:  cfg.Logger,
		handler: cfg.Handler,
	}
	if cfg.Plain {
		return s, nil
	}

	tlsCfg := cfg.TLS
	switch {
	case tlsCfg != nil:
	case cfg.CertFile != "" && cfg.KeyFile != "":
		var err error
		if tlsCfg, err = ProductionTLSConfig(cfg.CertFile, cfg.KeyFile); err != nil {
			return nil, fmt.Errorf("load TLS cert: %w", err)
		}
		cfg.Logger.Info("TLS: certificate loaded", "cert", cfg.CertFile)
	default:
		var err error
		if tlsCfg, err = DevelopmentTLSConfig(); err != nil {
			return nil, fmt.Errorf("generate dev TLS: %w", err)
		}
		cfg.Logger.Warn("TLS: using self-signed development certificate")
	}
	s.tlsCfg = tlsCfg

	if cfg.MCPServer != nil {
		s.mcpHandler = mcpquic.NewHandler(cfg.MCPServer, cfg.Logger)
	}
	return s, nil
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// altSvc advertises HTTP/3 on the same port.
func altSvc(addr string, next http.Handler) http.Handler {
	_, port, _ := net.SplitHostPort(addr)
	if port == "" {
		port = "8420"
	}
	value := fmt.Sprintf(`h3=":%s"; ma=86400`, port)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Alt-Svc", value)
		next.ServeHTTP(w, r)
	})
}

// Start listens on TCP (and UDP unless plain) and blocks until ctx is done
// or a listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()

	handler := securityHeaders(s.handler)
	s.tcpServer = &http.Server{
		Addr:              s.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tcpLn, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("TCP listen: %w", err)
	}

	if !s.plain {
		tcpTLS := s.tlsCfg.Clone()
		tcpTLS.NextProtos = []string{"h2", "http/1.1"}
		s.tcpServer.TLSConfig = tcpTLS
		s.tcpServer.Handler = securityHeaders(altSvc(s.addr, s.handler))
		tcpLn = tls.NewListener(tcpLn, tcpTLS)

		ln, err := quic.ListenAddr(s.addr, s.tlsCfg, mcpquic.QUICConfig())
		if err != nil {
			tcpLn.Close()
			s.mu.Unlock()
			return fmt.Errorf("QUIC listen: %w", err)
		}
		s.quicLn = ln
		s.h3Server = &http3.Server{Handler: handler}
	}
	s.mu.Unlock()

	errCh := make(chan error, 2)
	go func() {
		if err := s.tcpServer.Serve(tcpLn); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("TCP: %w", err)
		}
	}()
	if s.quicLn != nil {
		go s.acceptQUIC(ctx, errCh)
	}

	udp := "off"
	if !s.plain {
		udp = "QUIC (HTTP/3 + MCP)"
	}
	s.logger.Info("chassis started", "addr", s.addr, "tls", !s.plain, "udp", udp)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) acceptQUIC(ctx context.Context, errCh chan<- error) {
	for {
		conn, err := s.quicLn.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, quic.ErrServerClosed) {
				return
			}
			errCh <- fmt.Errorf("QUIC accept: %w", err)
			return
		}

		switch alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn {
		case "h3":
			go func() {
				if err := s.h3Server.ServeQUICConn(conn); err != nil {
					s.logger.Debug("HTTP/3 conn done", "remote", conn.RemoteAddr(), "error", err)
				}
			}()
		case mcpquic.ALPNProtocolMCP:
			if s.mcpHandler == nil {
				conn.CloseWithError(mcpquic.ConnErrorUnsupportedALPN, "MCP not enabled")
				continue
			}
			go s.mcpHandler.ServeConn(ctx, conn)
		default:
			s.logger.Warn("unknown ALPN, closing", "alpn", alpn, "remote", conn.RemoteAddr())
			conn.CloseWithError(mcpquic.ConnErrorUnsupportedALPN, "unsupported ALPN: "+alpn)
		}
	}
}

// Stop shuts down every listener, waiting for in-flight HTTP requests.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.tcpServer != nil {
		errs = append(errs, s.tcpServer.Shutdown(ctx))
	}
	if s.h3Server != nil {
		errs = append(errs, s.h3Server.Close())
	}
	if s.quicLn != nil {
		errs = append(errs, s.quicLn.Close())
	}
	s.logger.Info("chassis stopped")
	return errors.Join(errs...)
}
