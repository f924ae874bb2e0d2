package bridge

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"daybook/internal/bus"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxFrame   = 1 << 16
	outBuffer  = 64
)

// inbound lists the topics a remote surface may publish locally.
var inbound = map[bus.Topic]bool{
	bus.TopicUpdateGoalsState:  true,
	bus.TopicRequestGoalsState: true,
	bus.TopicRequestTimerState: true,
	bus.TopicGoalsWindowSize:   true,
	bus.TopicShowGoalsWindow:   true,
	bus.TopicHideGoalsWindow:   true,
}

// Broadcaster is the local bus the server relays.
type Broadcaster interface {
	bus.Publisher
	bus.Subscriber
	Last(topic bus.Topic) (bus.Message, bool)
}

// Server relays push topics to websocket clients and publishes their intents.
type Server struct {
	bus      Broadcaster
	logger   *logrus.Entry
	upgrader websocket.Upgrader
	server   *http.Server

	mu      sync.Mutex
	clients int
}

// NewServer creates a bridge over b.
func NewServer(b Broadcaster, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		bus:    b,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Handler returns the HTTP routes served by the bridge.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", s.handleSocket)
	return mux
}

// Serve accepts connections on listener until ctx is done.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.WithField("address", listener.Addr().String()).Info("bridge listening")
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Clients returns the number of connected surfaces.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	s.track(1)
	defer s.track(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	logger := s.logger.WithField("remote", conn.RemoteAddr().String())
	logger.Debug("bridge client connected")

	out := make(chan bus.Message, outBuffer)
	var relays sync.WaitGroup
	for _, topic := range bus.PushTopics {
		sub := s.bus.Subscribe(topic, outBuffer)
		relays.Add(1)
		go func() {
			defer relays.Done()
			defer sub.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case message, ok := <-sub.C():
					if !ok {
						return
					}
					select {
					case out <- message:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		s.writeLoop(ctx, conn, out, logger)
	}()

	s.readLoop(conn, logger)
	cancel()
	<-writerDone
	relays.Wait()
	_ = conn.Close()
	logger.Debug("bridge client disconnected")
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan bus.Message, logger *logrus.Entry) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	// Late joiners get the current value of every push topic first.
	for _, topic := range bus.PushTopics {
		if message, ok := s.bus.Last(topic); ok {
			if err := writeFrame(conn, message.Topic, message.Payload); err != nil {
				logger.WithError(err).Debug("bridge initial write failed")
				return
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			_ = conn.Close()
			return
		case message := <-out:
			if err := writeFrame(conn, message.Topic, message.Payload); err != nil {
				logger.WithError(err).Debug("bridge write failed")
				_ = conn.Close()
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logger.WithError(err).Debug("bridge ping failed")
				_ = conn.Close()
				return
			}
		}
	}
}

func (s *Server) readLoop(conn *websocket.Conn, logger *logrus.Entry) {
	conn.SetReadLimit(maxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WithError(err).Debug("bridge read ended")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		topic, payload, err := Decode(data)
		if err != nil {
			logger.WithError(err).Warn("bridge frame rejected")
			continue
		}
		if !inbound[topic] {
			logger.WithField("topic", topic).Warn("bridge frame on push-only topic ignored")
			continue
		}
		s.bus.Publish(topic, payload)
	}
}

func (s *Server) track(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients += delta
}

func writeFrame(conn *websocket.Conn, topic bus.Topic, payload any) error {
	data, err := Encode(topic, payload)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
