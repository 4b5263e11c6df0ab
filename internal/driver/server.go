// Package driver hosts a small TCP command driver in front of
// internal/engine. It is an external collaborator per spec.md §1: it owns
// no book invariants, and internal/engine has no import dependency on it.
//
// All connection I/O runs concurrently across a worker pool, but every
// engine call is funnelled through a single goroutine (sessionHandler) -
// the "single-consumer queue" spec.md §5 names as the expected pattern for
// serializing external multi-threaded use onto the engine's
// single-threaded core.
package driver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"matchbook/internal/engine"
	"matchbook/internal/wire"
)

const (
	maxFrameSize       = 4 * 1024
	defaultWorkerCount = 10
	defaultReadTimeout = time.Second
)

var (
	ErrImproperConversion = errors.New("improper task type conversion")
	ErrClientDoesNotExist = errors.New("client does not exist")
)

type clientMessage struct {
	clientAddress string
	message       wire.Message
}

// Server accepts TCP connections, decodes wire.Messages and applies them to
// a single engine.Engine, writing execution/error reports back out.
type Server struct {
	address string
	port    int
	engine  *engine.Engine
	pool    *WorkerPool

	cancel context.CancelFunc

	sessionsLock sync.Mutex
	sessions     map[string]net.Conn

	inbox chan clientMessage
}

// New creates a driver bound to address:port, issuing commands against eng.
// It does not start listening until Run is called.
func New(address string, port int, eng *engine.Engine) *Server {
	return &Server{
		address:  address,
		port:     port,
		engine:   eng,
		pool:     NewWorkerPool(defaultWorkerCount),
		sessions: make(map[string]net.Conn),
		inbox:    make(chan clientMessage, 1),
	}
}

// Shutdown cancels the driver's context, unwinding Run.
func (s *Server) Shutdown() {
	log.Info().Msg("driver shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run listens for connections and processes commands until ctx is
// cancelled. It blocks; callers typically invoke it in its own goroutine.
func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	t.Go(func() error {
		s.pool.Run(t, s.handleConnection)
		return nil
	})
	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", listener.Addr().String()).Msg("driver listening")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}
			log.Info().Str("remote", conn.RemoteAddr().String()).Msg("client connected")
			s.addSession(conn)
			s.pool.AddTask(conn)
		}
	}
}

// sessionHandler is the single goroutine that ever calls into s.engine.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.inbox:
			if err := s.handleMessage(msg); err != nil {
				log.Error().Err(err).Str("client", msg.clientAddress).Msg("error handling message")
				s.reportError(msg.clientAddress, err)
			}
		}
	}
}

func (s *Server) handleMessage(msg clientMessage) error {
	switch m := msg.message.(type) {
	case wire.NewOrderMessage:
		m.MintOrderID()
		if err := s.engine.AddOrder(m.OrderID, m.Side, m.Price, m.Quantity, m.Timestamp); err != nil {
			return err
		}
	case wire.CancelOrderMessage:
		if !s.engine.CancelOrder(m.OrderID) {
			return fmt.Errorf("cancel: unknown order id %d", m.OrderID)
		}
	case wire.AmendOrderMessage:
		if !s.engine.AmendOrder(m.OrderID, m.NewPrice, m.NewQuantity) {
			return fmt.Errorf("amend: unknown order id %d", m.OrderID)
		}
	default:
		return wire.ErrInvalidMessageType
	}
	return nil
}

// ReportTrade is wired as the engine's TradeSink. It must never call back
// into the engine: the crossing loop that invokes it holds a transiently
// inconsistent book.
func (s *Server) ReportTrade(trade engine.TradeEvent) {
	s.broadcast(wire.TradeReport(trade, engine.Bid).Serialize())
	s.broadcast(wire.TradeReport(trade, engine.Ask).Serialize())
}

func (s *Server) broadcast(payload []byte) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	for addr, conn := range s.sessions {
		if _, err := conn.Write(payload); err != nil {
			log.Error().Err(err).Str("client", addr).Msg("failed writing report")
			delete(s.sessions, addr)
		}
	}
}

func (s *Server) reportError(clientAddress string, reportErr error) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	conn, ok := s.sessions[clientAddress]
	if !ok {
		log.Error().Err(ErrClientDoesNotExist).Str("client", clientAddress).Msg("cannot report error")
		return
	}
	if _, err := conn.Write(wire.ErrorReportFor(reportErr).Serialize()); err != nil {
		log.Error().Err(err).Str("client", clientAddress).Msg("failed writing error report")
		delete(s.sessions, clientAddress)
	}
}

// handleConnection is a short-lived worker task: read one frame, decode it,
// hand it to sessionHandler, then re-enqueue the connection for its next
// frame. Any returned error is treated as fatal to the worker goroutine.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	if err := conn.SetDeadline(time.Now().Add(defaultReadTimeout)); err != nil {
		log.Error().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("failed setting deadline")
		conn.Close()
		return nil
	}

	select {
	case <-t.Dying():
		return nil
	default:
	}

	buf := make([]byte, maxFrameSize)
	n, err := conn.Read(buf)
	if err != nil {
		log.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("connection closed")
		s.deleteSession(conn.RemoteAddr().String())
		conn.Close()
		return nil
	}

	msg, err := wire.Parse(buf[:n])
	if err != nil {
		log.Error().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("error parsing frame")
		s.deleteSession(conn.RemoteAddr().String())
		conn.Close()
		return nil
	}

	s.inbox <- clientMessage{clientAddress: conn.RemoteAddr().String(), message: msg}
	s.pool.AddTask(conn)
	return nil
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	s.sessions[conn.RemoteAddr().String()] = conn
}

func (s *Server) deleteSession(address string) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	delete(s.sessions, address)
}
