package server

import (
	"bufio"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/MilaKyr/trading-app/pkg/exchange"
)

// Session is the per-connection actor. It multiplexes two directions over
// one socket: inbound lines are parsed and submitted to the registry, and
// notifications arriving on the trader's channel are written back out.
// Neither direction can starve the other: each runs in its own pump
// goroutine and the notification channel is buffered.
//
// Lifecycle: Active while both pumps run, Closing once either pump sees
// EOF or a transport error, Terminated after the directory entry is gone
// and the socket is closed. Teardown runs exactly once regardless of which
// side fails first.
type Session struct {
	id       exchange.TraderID
	conn     net.Conn
	registry *exchange.Registry
	notify   chan string
	log      *zap.SugaredLogger

	closeOnce sync.Once
}

func newSession(id exchange.TraderID, conn net.Conn, registry *exchange.Registry, buffer int, log *zap.SugaredLogger) *Session {
	s := &Session{
		id:       id,
		conn:     conn,
		registry: registry,
		notify:   make(chan string, buffer),
		log:      log,
	}
	registry.RegisterTrader(id, s.notify)
	return s
}

// run blocks until the session terminates.
func (s *Session) run() {
	go s.writePump()
	s.readPump()
}

// readPump delivers inbound lines to the registry until the client closes
// the stream or the read fails. A transport error is fatal only to this
// connection.
func (s *Session) readPump() {
	defer s.teardown()

	scanner := bufio.NewScanner(s.conn)
	for scanner.Scan() {
		s.handleLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		s.log.Errorw("session_read_failed", "trader", s.id, "err", err)
	}
}

// writePump drains the trader's notification channel to the socket, one
// line each, in registry issue order. The channel is closed when the
// trader leaves the directory.
func (s *Session) writePump() {
	for msg := range s.notify {
		if _, err := fmt.Fprintf(s.conn, "%s\n", msg); err != nil {
			s.log.Errorw("session_write_failed", "trader", s.id, "err", err)
			s.teardown()
			return
		}
	}
	// Registry closed the channel; make sure the reader unblocks too.
	s.conn.Close()
}

// handleLine runs one inbound line through parse, ack and match-or-rest.
// Content errors go back to this trader only and never touch the books.
func (s *Session) handleLine(line string) {
	intent, err := exchange.ParseIntent(s.id, line)
	if err != nil {
		s.registry.SendError(s.id, err.Error())
		return
	}
	s.log.Infow("intent_received", "trader", intent.TraderID,
		"action", intent.Action.String(), "product", intent.Product.String())

	s.registry.Confirm(intent.TraderID, intent.Product)
	if product, ok := s.registry.Execute(intent); ok {
		s.log.Infow("trade_executed", "product", product.String())
		s.registry.InformAll(product)
	}
}

func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.registry.RemoveTrader(s.id)
		s.conn.Close()
		s.log.Infow("session_closed", "trader", s.id)
	})
}
