package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahwuocdz/gateserver/pkg/protocol"
	"github.com/ahwuocdz/gateserver/pkg/store"
)

var (
	errorLog = log.New(os.Stderr, "ERROR: ", log.LstdFlags)
	debugLog = log.New(io.Discard, "DEBUG: ", log.LstdFlags)
)

// EnableDebugLogging routes debug output to stderr.
func EnableDebugLogging() {
	debugLog = log.New(os.Stderr, "DEBUG: ", log.LstdFlags)
}

// Server is the authentication gateway: it accepts game-server connections,
// runs one session loop per connection, and mediates access to the shared
// online-user registry and the credential store.
type Server struct {
	store   store.AccountStore
	users   *UserManager
	config  Config
	metrics *Metrics

	listener   net.Listener
	metricsSrv *http.Server
	shutdown   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	startTime  time.Time

	sessionsMu    sync.Mutex
	sessions      map[uint64]*Session
	nextSessionID atomic.Uint64
}

// NewServer creates a server over an account store. Config must already be
// validated (LoadConfig does that).
func NewServer(st store.AccountStore, config Config) *Server {
	metrics := NewMetrics()
	users := NewUserManager()
	users.SetMetrics(metrics)

	return &Server{
		store:     st,
		users:     users,
		config:    config,
		metrics:   metrics,
		shutdown:  make(chan struct{}),
		startTime: time.Now(),
		sessions:  make(map[uint64]*Session),
	}
}

// Users exposes the online-user registry.
func (s *Server) Users() *UserManager {
	return s.users
}

// Start begins listening for game-server connections and serves the
// internal metrics endpoint.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Server.ListenPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	log.Printf("Listening on port %d (wait_login=%ds, maintenance=%v)",
		s.config.Server.ListenPort, s.config.Server.SecondWaitLogin, s.config.Server.Maintenance)

	// Internal-only metrics server - never expose publicly
	if s.config.Server.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
		mux.HandleFunc("/health", s.healthHandler)
		s.metricsSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", s.config.Server.MetricsPort),
			Handler: mux,
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			log.Printf("Metrics server listening on %s (/metrics, /health) - INTERNAL ONLY", s.metricsSrv.Addr)
			if err := s.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errorLog.Printf("Metrics server error: %v", err)
			}
		}()
	}

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Addr returns the address the TCP listener is bound to.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","uptime_seconds":%d,"online_users":%d}`,
		int(time.Since(s.startTime).Seconds()), s.users.Count())
}

// acceptLoop accepts incoming connections until shutdown.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				errorLog.Printf("Accept error: %v", err)
				continue
			}
		}
		s.handleConnection(conn)
	}
}

// handleConnection registers a session and spawns its message loop.
func (s *Server) handleConnection(conn net.Conn) {
	// Replies should not sit in Nagle's buffer
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}

	sess := NewSession(s.nextSessionID.Add(1), conn, []byte(s.config.Server.CipherKey))

	s.sessionsMu.Lock()
	s.sessions[sess.ID] = sess
	count := len(s.sessions)
	s.sessionsMu.Unlock()
	s.metrics.RecordActiveConnections(count)

	log.Printf("Client %s connected (session %d)", sess.RemoteAddr, sess.ID)

	s.wg.Add(1)
	go s.sessionLoop(sess)
}

// removeSession drops a session from the table and closes its connection.
func (s *Server) removeSession(sess *Session) {
	s.sessionsMu.Lock()
	delete(s.sessions, sess.ID)
	count := len(s.sessions)
	s.sessionsMu.Unlock()
	s.metrics.RecordActiveConnections(count)

	sess.Close()
}

// sessionLoop reads and dispatches frames for one connection. Frames are
// processed strictly one at a time — the next read does not start until
// dispatch, including any database round-trip, has finished.
func (s *Server) sessionLoop(sess *Session) {
	defer s.wg.Done()
	defer s.removeSession(sess)

	ctx := context.Background()
	for {
		msg, err := sess.ReadMessage()
		if err != nil {
			if err == io.EOF {
				log.Printf("Session %d: connection closed by client", sess.ID)
			} else {
				errorLog.Printf("Session %d: read error: %v", sess.ID, err)
			}
			return
		}

		s.metrics.RecordFrameReceived(protocol.CommandName(msg.Command))

		// Out-of-band key exchange, handled before dispatch
		if msg.Command == protocol.CmdKeyExchange {
			log.Printf("Session %d: game server requested encryption key", sess.ID)
			if err := sess.SendKey(); err != nil {
				errorLog.Printf("Session %d: key exchange failed: %v", sess.ID, err)
				return
			}
			continue
		}

		if err := s.handleMessage(ctx, sess, msg); err != nil {
			errorLog.Printf("Session %d: %s failed: %v", sess.ID, protocol.CommandName(msg.Command), err)
			return
		}
	}
}

// Stop gracefully stops the server: stop accepting, notify every connected
// game server, close all sessions, and wait for the loops to drain. Safe to
// call more than once.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		log.Println("Graceful shutdown initiated...")

		close(s.shutdown)
		if s.listener != nil {
			s.listener.Close()
		}

		s.notifyPeersOfShutdown()

		s.sessionsMu.Lock()
		for _, sess := range s.sessions {
			sess.Close()
		}
		s.sessionsMu.Unlock()

		if s.metricsSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.metricsSrv.Shutdown(shutdownCtx)
		}

		s.wg.Wait()
		log.Println("Graceful shutdown complete")
	})
	return nil
}

// notifyPeersOfShutdown sends a broadcast text frame to every live session,
// best effort.
func (s *Server) notifyPeersOfShutdown() {
	msg, err := serverTextMessage(0, "Server shutting down for maintenance")
	if err != nil {
		return
	}

	s.sessionsMu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessionsMu.Unlock()

	sent := 0
	for _, sess := range sessions {
		if err := sess.WriteMessage(msg); err == nil {
			sent++
		}
	}
	if len(sessions) > 0 {
		log.Printf("Shutdown notification sent to %d/%d sessions", sent, len(sessions))
	}
}
