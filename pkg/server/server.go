package server

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/MilaKyr/trading-app/pkg/exchange"
	"github.com/MilaKyr/trading-app/params"
)

// Server accepts line-protocol connections and runs one Session per
// connection. It is the only writer of the directory's membership: a
// session is registered before its pumps start and deregistered by its
// own teardown.
type Server struct {
	cfg      params.Server
	registry *exchange.Registry
	log      *zap.SugaredLogger

	ln     net.Listener
	nextID atomic.Uint64 // fallback ids for non-TCP transports (tests)
}

func New(cfg params.Server, registry *exchange.Registry, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{cfg: cfg, registry: registry, log: log}
}

// Listen binds the TCP listener. A bind failure is fatal to the process
// and is returned to the caller.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.cfg.ListenAddr, err)
	}
	s.ln = ln
	s.log.Infow("gateway_listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until ctx is cancelled. Each accepted
// connection gets a trader id from its remote port and its own session
// goroutines; a connection's failure never propagates past its session.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		id := s.traderID(conn)
		s.log.Infow("trader_connected", "trader", id, "remote", conn.RemoteAddr().String())
		go s.Handle(id, conn)
	}
}

// Handle runs a session for one established connection. Exposed so tests
// can drive sessions over in-memory pipes.
func (s *Server) Handle(id exchange.TraderID, conn net.Conn) {
	newSession(id, conn, s.registry, s.cfg.NotifyBuffer, s.log).run()
}

// traderID derives the connection-scoped identity. For TCP this is the
// remote port, unique per live connection on one host.
func (s *Server) traderID(conn net.Conn) exchange.TraderID {
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return exchange.TraderID(addr.Port)
	}
	return exchange.TraderID(1<<32 + s.nextID.Add(1))
}
