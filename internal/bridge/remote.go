package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"daybook/internal/bus"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ErrClosed is returned when publishing on a closed remote.
var ErrClosed = errors.New("bridge connection closed")

// Remote is a bus backed by a bridge connection. Publish sends frames to the
// owning process; Subscribe reads the topics it relays back.
type Remote struct {
	conn   *websocket.Conn
	local  *bus.Bus
	logger *logrus.Entry

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
	err     error
}

// URL builds the websocket endpoint for a bridge at address.
func URL(address string) string {
	return (&url.URL{Scheme: "ws", Host: address, Path: "/ws"}).String()
}

// Dial connects to a bridge server at endpoint.
func Dial(ctx context.Context, endpoint string, logger *logrus.Entry) (*Remote, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial bridge %s: %w", endpoint, err)
	}
	remote := &Remote{
		conn:   conn,
		local:  bus.New(logger),
		logger: logger,
		done:   make(chan struct{}),
	}
	go remote.readLoop()
	return remote, nil
}

// Publish sends payload to the owning process. Failures are logged; the
// message is fire-and-forget like every bus publish.
func (remote *Remote) Publish(topic bus.Topic, payload any) {
	if err := remote.Send(topic, payload); err != nil {
		remote.logger.WithError(err).WithField("topic", topic).Debug("bridge publish dropped")
	}
}

// Send is Publish with the write error reported.
func (remote *Remote) Send(topic bus.Topic, payload any) error {
	select {
	case <-remote.done:
		return ErrClosed
	default:
	}
	data, err := Encode(topic, payload)
	if err != nil {
		return err
	}
	remote.writeMu.Lock()
	defer remote.writeMu.Unlock()
	_ = remote.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := remote.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write %s frame: %w", topic, err)
	}
	return nil
}

// Subscribe opens a stream of frames relayed on topic.
func (remote *Remote) Subscribe(topic bus.Topic, buffer int) *bus.Subscription {
	return remote.local.Subscribe(topic, buffer)
}

// Last returns the most recent frame received on topic.
func (remote *Remote) Last(topic bus.Topic) (bus.Message, bool) {
	return remote.local.Last(topic)
}

// Done is closed when the connection ends.
func (remote *Remote) Done() <-chan struct{} {
	return remote.done
}

// Err reports why the connection ended.
func (remote *Remote) Err() error {
	select {
	case <-remote.done:
		return remote.err
	default:
		return nil
	}
}

// Close ends the connection and every subscription.
func (remote *Remote) Close() error {
	remote.writeMu.Lock()
	_ = remote.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	remote.writeMu.Unlock()
	err := remote.conn.Close()
	<-remote.done
	return err
}

func (remote *Remote) readLoop() {
	var readErr error
	defer func() {
		remote.once.Do(func() {
			remote.err = readErr
			remote.local.Close()
			close(remote.done)
		})
	}()

	remote.conn.SetReadLimit(maxFrame)
	for {
		_, data, err := remote.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				readErr = err
			}
			return
		}
		topic, payload, err := Decode(data)
		if err != nil {
			remote.logger.WithError(err).Warn("bridge frame rejected")
			continue
		}
		remote.local.Publish(topic, payload)
	}
}
