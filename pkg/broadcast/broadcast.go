// Package broadcast relays canvas events between server replicas over a
// mangos PUB/SUB socket pair. Frames are "<topic>|<json message>", so SUB
// sockets can filter by topic prefix.
package broadcast

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	// register tcp, ipc, inproc and ws transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/strategy-canvas/pkg/logging"
	"github.com/dd0wney/strategy-canvas/pkg/pubsub"
)

const separator = '|'

// Recorder receives relay outcomes. *metrics.Registry satisfies it.
type Recorder interface {
	RecordBroadcast(ok bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordBroadcast(bool) {}

// Encode builds the wire frame for msg.
func Encode(msg pubsub.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	frame := make([]byte, 0, len(msg.Topic)+1+len(data))
	frame = append(frame, msg.Topic...)
	frame = append(frame, separator)
	return append(frame, data...), nil
}

// Decode parses a wire frame.
func Decode(frame []byte) (pubsub.Message, error) {
	i := bytes.IndexByte(frame, separator)
	if i < 0 {
		return pubsub.Message{}, errors.New("frame has no topic separator")
	}
	var msg pubsub.Message
	if err := json.Unmarshal(frame[i+1:], &msg); err != nil {
		return pubsub.Message{}, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	msg.Topic = string(frame[:i])
	return msg, nil
}

// Publisher forwards locally published bus messages to remote subscribers.
type Publisher struct {
	sock     mangos.Socket
	logger   logging.Logger
	recorder Recorder
	wg       sync.WaitGroup
}

// NewPublisher listens on addr, e.g. "tcp://0.0.0.0:7450".
func NewPublisher(addr string, logger logging.Logger, rec Recorder) (*Publisher, error) {
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if err := sock.Listen(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Publisher{
		sock:     sock,
		logger:   logging.OrNop(logger).With(logging.Component("broadcast"), logging.String("addr", addr)),
		recorder: rec,
	}, nil
}

// Send publishes one message.
func (p *Publisher) Send(msg pubsub.Message) error {
	frame, err := Encode(msg)
	if err != nil {
		return err
	}
	err = p.sock.Send(frame)
	p.recorder.RecordBroadcast(err == nil)
	return err
}

// Relay forwards bus messages matching pattern until ctx is done. Messages
// that themselves came from a remote relay are not sent back out.
func (p *Publisher) Relay(ctx context.Context, bus *pubsub.PubSub, pattern string) error {
	s, err := bus.Subscribe(ctx, pattern)
	if err != nil {
		return err
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for msg := range s.Channel() {
			if msg.Origin != "" {
				continue
			}
			if err := p.Send(msg); err != nil {
				p.logger.Warn("failed to relay message", logging.String("topic", msg.Topic), logging.Error(err))
			}
		}
	}()
	return nil
}

// Close closes the socket once every relay has stopped. Cancel the relay
// contexts first.
func (p *Publisher) Close() error {
	p.wg.Wait()
	return p.sock.Close()
}

// Subscriber receives remote messages and republishes them on a local bus.
type Subscriber struct {
	sock   mangos.Socket
	origin string
	logger logging.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewSubscriber dials addr and subscribes to every topic starting with
// prefix. origin is stamped on republished messages.
func NewSubscriber(addr, prefix, origin string, logger logging.Logger) (*Subscriber, error) {
	sock, err := sub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}
	if err := sock.SetOption(mangos.OptionSubscribe, []byte(prefix)); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	if err := sock.SetOption(mangos.OptionRecvDeadline, time.Second); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to set receive deadline: %w", err)
	}
	// mangos redials in the background, so the peer may come up later
	if err := sock.DialOptions(addr, map[string]any{mangos.OptionDialAsynch: true}); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return &Subscriber{
		sock:   sock,
		origin: origin,
		logger: logging.OrNop(logger).With(logging.Component("broadcast"), logging.String("peer", addr)),
		stopCh: make(chan struct{}),
	}, nil
}

// Forward republishes received messages on bus until Close.
func (s *Subscriber) Forward(bus *pubsub.PubSub) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.stopCh:
				return
			default:
			}

			frame, err := s.sock.Recv()
			if err != nil {
				if errors.Is(err, mangos.ErrClosed) {
					return
				}
				// receive deadline, poll stopCh again
				continue
			}
			msg, err := Decode(frame)
			if err != nil {
				s.logger.Warn("dropping malformed frame", logging.Error(err))
				continue
			}
			msg.Origin = s.origin
			bus.Publish(msg)
		}
	}()
}

// Close stops forwarding and closes the socket.
func (s *Subscriber) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		err = s.sock.Close()
	})
	return err
}
