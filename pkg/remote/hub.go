package remote

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vango-dev/livestate/pkg/reactive"
)

// ErrHubStopped is returned by hub calls made after Run has returned.
var ErrHubStopped = stderrors.New("remote: hub stopped")

// Message types exchanged with websocket clients.
const (
	TypeHello       = "hello"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeApply       = "apply"
	TypeValue       = "value"
	TypeApplied     = "applied"
	TypeError       = "error"
)

// ClientMessage is sent by websocket clients.
type ClientMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Path  string `json:"path,omitempty"`
	Event *Event `json:"event,omitempty"`
}

// ServerMessage is sent to websocket clients.
type ServerMessage struct {
	Type    string          `json:"type"`
	Session string          `json:"session,omitempty"`
	ID      string          `json:"id,omitempty"`
	Path    string          `json:"path,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	Result  *Result         `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type hubConfig struct {
	logger       *slog.Logger
	sendBuffer   int
	writeTimeout time.Duration
	checkOrigin  func(r *http.Request) bool
}

// HubOption configures a Hub.
type HubOption func(*hubConfig)

// WithHubLogger sets the hub's logger.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(c *hubConfig) {
		c.logger = logger
	}
}

// WithSendBuffer sets how many messages may queue for one client before
// the client is dropped as too slow. Default: 64.
func WithSendBuffer(n int) HubOption {
	return func(c *hubConfig) {
		c.sendBuffer = n
	}
}

// WithWriteTimeout bounds each websocket write. Default: 10s.
func WithWriteTimeout(d time.Duration) HubOption {
	return func(c *hubConfig) {
		c.writeTimeout = d
	}
}

// WithCheckOrigin sets the websocket origin check. The default accepts
// same-origin requests only.
func WithCheckOrigin(fn func(r *http.Request) bool) HubOption {
	return func(c *hubConfig) {
		c.checkOrigin = fn
	}
}

// Hub owns one root. Every read and write of the root happens on the
// goroutine running Run, so the root can be shared by websocket sessions,
// HTTP handlers and feeds running on other goroutines.
type Hub struct {
	cfg      hubConfig
	applier  *Applier
	ops      chan func()
	stopped  chan struct{}
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
}

// NewHub creates a hub for root. Call Run before serving clients.
func NewHub(root any, opts ...HubOption) (*Hub, error) {
	cfg := hubConfig{
		logger:       slog.New(slog.DiscardHandler),
		sendBuffer:   64,
		writeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	applier, err := NewApplier(root, WithApplierLogger(cfg.logger))
	if err != nil {
		return nil, err
	}

	return &Hub{
		cfg:     cfg,
		applier: applier,
		ops:     make(chan func()),
		stopped: make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.checkOrigin,
		},
		sessions: make(map[string]*session),
	}, nil
}

// Run executes queued operations until ctx is done, then closes every
// session. It returns ctx.Err().
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		close(h.stopped)
		h.closeSessions()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case op := <-h.ops:
			op()
		}
	}
}

// Do runs fn on the hub goroutine and waits for it.
func (h *Hub) Do(ctx context.Context, fn func(root *reactive.Node)) error {
	done := make(chan struct{})
	op := func() {
		defer close(done)
		fn(h.applier.Root())
	}

	select {
	case h.ops <- op:
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	<-done
	return nil
}

// Apply applies e on the hub goroutine.
func (h *Hub) Apply(ctx context.Context, e Event) (Result, error) {
	var (
		res      Result
		applyErr error
	)
	err := h.Do(ctx, func(*reactive.Node) {
		res, applyErr = h.applier.Apply(e)
	})
	if err != nil {
		return Result{}, err
	}
	return res, applyErr
}

// Snapshot returns the root encoded as JSON.
func (h *Hub) Snapshot(ctx context.Context) ([]byte, error) {
	var (
		data   []byte
		encErr error
	)
	err := h.Do(ctx, func(root *reactive.Node) {
		data, encErr = json.Marshal(root.Original())
	})
	if err != nil {
		return nil, err
	}
	return data, encErr
}

// SessionCount returns the number of connected websocket clients.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// ServeHTTP upgrades the request to a websocket session.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.cfg.logger.Warn("remote: websocket upgrade failed", "error", err)
		return
	}

	s := &session{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.cfg.sendBuffer),
		done: make(chan struct{}),
		subs: make(map[string]reactive.Unsubscribe),
	}

	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	h.cfg.logger.Info("remote: session opened", "session", s.id)

	go s.writeLoop()
	s.emit(ServerMessage{Type: TypeHello, Session: s.id})
	s.readLoop(r.Context())

	// Subscriptions live on the hub goroutine; release them there.
	_ = h.Do(context.Background(), func(*reactive.Node) {
		s.unsubscribeAll()
	})
	s.close()

	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
	h.cfg.logger.Info("remote: session closed", "session", s.id)
}

func (h *Hub) closeSessions() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sessions {
		s.close()
	}
}

// session is one websocket client. subs is only touched on the hub goroutine.
type session struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	subs map[string]reactive.Unsubscribe

	closeOnce sync.Once
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// emit queues msg for the client. A client whose queue is full is dropped.
func (s *session) emit(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.hub.cfg.logger.Error("remote: encode message", "session", s.id, "error", err)
		return
	}
	select {
	case <-s.done:
	case s.send <- data:
	default:
		s.hub.cfg.logger.Warn("remote: client buffer full, dropping session", "session", s.id)
		s.close()
	}
}

func (s *session) emitError(id string, err error) {
	s.emit(ServerMessage{Type: TypeError, ID: id, Error: err.Error()})
}

func (s *session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.close()
				return
			}
		}
	}
}

func (s *session) readLoop(ctx context.Context) {
	for {
		var msg ClientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case TypeSubscribe:
			s.subscribe(ctx, msg.ID, reactive.ParsePath(msg.Path))
		case TypeUnsubscribe:
			err := s.hub.Do(ctx, func(*reactive.Node) {
				if off, ok := s.subs[msg.ID]; ok {
					off()
					delete(s.subs, msg.ID)
				}
			})
			if err != nil {
				return
			}
		case TypeApply:
			if msg.Event == nil {
				s.emit(ServerMessage{Type: TypeError, ID: msg.ID, Error: "apply message has no event"})
				continue
			}
			res, err := s.hub.Apply(ctx, *msg.Event)
			if stderrors.Is(err, ErrHubStopped) || ctx.Err() != nil {
				return
			}
			if err != nil {
				s.emitError(msg.ID, err)
				continue
			}
			s.emit(ServerMessage{Type: TypeApplied, ID: msg.ID, Result: &res})
		default:
			s.emit(ServerMessage{Type: TypeError, ID: msg.ID, Error: "unknown message type " + msg.Type})
		}
	}
}

// subscribe replaces any subscription with the same id. The path is
// watched through Props, so a client receives at most one value per event
// even when the event rewrites the path several times.
func (s *session) subscribe(ctx context.Context, id string, path reactive.Path) {
	_ = s.hub.Do(ctx, func(root *reactive.Node) {
		if off, ok := s.subs[id]; ok {
			off()
		}
		src := reactive.Props(root, []reactive.Path{path}, first)
		s.subs[id] = src.Subscribe(func(v any) {
			data, err := json.Marshal(reactive.Unwrap(v))
			if err != nil {
				s.emitError(id, err)
				return
			}
			s.emit(ServerMessage{Type: TypeValue, ID: id, Path: path.String(), Value: data})
		})
	})
}

func first(values ...any) any {
	return values[0]
}

func (s *session) unsubscribeAll() {
	for id, off := range s.subs {
		off()
		delete(s.subs, id)
	}
}
