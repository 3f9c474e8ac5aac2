package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/zeusync/boidsim/internal/config"
	"github.com/zeusync/boidsim/internal/core/events/bus"
	"github.com/zeusync/boidsim/internal/core/observability/log"
	"github.com/zeusync/boidsim/internal/core/world"
)

// FrameSource yields the most recent published frame, or nil before the first tick.
type FrameSource interface {
	LatestFrame() *world.Frame
}

// CommandSink accepts world mutations from other goroutines.
type CommandSink interface {
	Enqueue(cmd world.Command)
}

const (
	sendBuffer     = 4
	maxMessageSize = 64 * 1024
	shutdownGrace  = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Server streams frames to renderer clients, relays selection and move
// notices from the event bus, and forwards client commands.
type Server struct {
	cfg    config.FeedConfig
	codec  Codec
	source FrameSource
	sink   CommandSink
	events bus.EventBus
	subs   []bus.Subscription
	logger log.Log

	router *mux.Router

	mu      sync.Mutex
	clients map[*client]struct{}

	lastTick atomic.Uint64
	sent     atomic.Uint64
	notices  atomic.Uint64
	dropped  atomic.Uint64
}

// NewServer creates a feed server. sink may be nil for a read-only feed and
// events may be nil for a feed without notices.
func NewServer(cfg config.FeedConfig, source FrameSource, sink CommandSink, events bus.EventBus, logger log.Log) (*Server, error) {
	if source == nil {
		return nil, ErrNoFrameSource
	}
	codec, err := NewCodec(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}

	s := &Server{
		cfg:     cfg,
		codec:   codec,
		source:  source,
		sink:    sink,
		events:  events,
		logger:  logger.With(log.String("component", "feed")),
		clients: make(map[*client]struct{}),
	}

	s.router = mux.NewRouter()
	s.router.HandleFunc(cfg.Path, s.handleWebSocket).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	if events != nil {
		for _, typ := range forwardedEvents {
			sub, err := events.Subscribe(typ, s.forward)
			if err != nil {
				s.unsubscribe()
				return nil, fmt.Errorf("subscribe %s: %w", typ, err)
			}
			s.subs = append(s.subs, sub)
		}
	}
	return s, nil
}

// Handler is the HTTP handler serving the feed routes.
func (s *Server) Handler() http.Handler { return s.router }

// Clients is the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Run listens on the configured address and broadcasts frames every
// interval until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Feed listening",
			log.String("addr", s.cfg.ListenAddr),
			log.String("path", s.cfg.Path),
			log.String("encoding", s.codec.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			s.unsubscribe()
			s.closeAll()
			err := srv.Shutdown(shutdownCtx)
			s.logger.Info("Feed stopped",
				log.Uint64("frames_sent", s.sent.Load()),
				log.Uint64("notices_sent", s.notices.Load()))
			return err
		case err, ok := <-errCh:
			if ok {
				return err
			}
		case <-ticker.C:
			s.Broadcast()
		}
	}
}

// Broadcast encodes the latest frame once and queues it for every client.
// A frame already sent is skipped; a client whose queue is full misses it.
func (s *Server) Broadcast() {
	frame := s.source.LatestFrame()
	if frame == nil {
		return
	}
	if s.sent.Load() > 0 && s.lastTick.Load() == frame.Tick {
		return
	}

	msg, err := s.codec.Encode(frame)
	if err != nil {
		s.logger.Error("Encode frame", log.Uint64("tick", frame.Tick), log.Error(err))
		return
	}
	s.lastTick.Store(frame.Tick)
	s.sent.Add(1)
	s.fanOut(msg)
}

// forward relays a bus event to every client. It runs on the publishing
// goroutine and never blocks on a slow client.
func (s *Server) forward(e bus.Event) error {
	n, ok := noticeFor(e)
	if !ok {
		return nil
	}
	msg, err := s.codec.Encode(n)
	if err != nil {
		return fmt.Errorf("encode %s notice: %w", e.Type(), err)
	}
	s.notices.Add(1)
	s.fanOut(msg)
	return nil
}

func (s *Server) fanOut(msg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			s.dropped.Add(1)
		}
	}
}

func (s *Server) unsubscribe() {
	for _, sub := range s.subs {
		_ = s.events.Unsubscribe(sub)
	}
	s.subs = nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"clients":  s.Clients(),
		"encoding": s.codec.Name(),
		"frames":   s.sent.Load(),
		"notices":  s.notices.Load(),
		"dropped":  s.dropped.Load(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", log.Error(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Info("Feed client connected", log.String("client", c.id), log.String("remote", conn.RemoteAddr().String()))

	go s.writePump(c)
	s.readPump(c)
}

func (s *Server) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		if s.cfg.WriteTimeout > 0 {
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		}
		if err := c.conn.WriteMessage(s.codec.MessageType(), msg); err != nil {
			s.logger.Debug("Feed write failed", log.String("client", c.id), log.Error(err))
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) readPump(c *client) {
	defer func() {
		s.remove(c)
		s.logger.Info("Feed client disconnected", log.String("client", c.id))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleCommand(c, mt, data)
	}
}

func (s *Server) handleCommand(c *client, mt int, data []byte) {
	if s.sink == nil {
		return
	}
	cmd, err := DecodeCommand(mt, data)
	if err != nil {
		s.logger.Warn("Bad feed command", log.String("client", c.id), log.Error(err))
		return
	}
	wc, err := cmd.WorldCommand()
	if err != nil {
		s.logger.Warn("Rejected feed command", log.String("client", c.id), log.String("action", cmd.Action), log.Error(err))
		return
	}
	s.sink.Enqueue(wc)
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		c.close()
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()
	for c := range clients {
		c.close()
	}
}
