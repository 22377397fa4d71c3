package stream

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Message is a value that can be broadcast by a Source.
type Message interface {
	String() string
}

// Source represents a message source that will be broadcast to its sinks.
type Source struct {
	logger *zap.Logger

	sinks     map[string]*Sink
	sinksLock sync.Mutex
}

// NewSource creates a new message source.
func NewSource(logger *zap.Logger) *Source {
	return &Source{
		logger: logger,
		sinks:  map[string]*Sink{},
	}
}

// DefaultSinkBuffer is the number of messages a sink holds before the source starts dropping them.
const DefaultSinkBuffer = 10

// NewSink creates a message sink for this source with the default buffer.
func (s *Source) NewSink() *Sink {
	return s.NewSinkSize(DefaultSinkBuffer)
}

// NewSinkSize creates a message sink which buffers up to size messages.
// Subscribers expecting bursts larger than DefaultSinkBuffer should size the sink for the burst.
func (s *Source) NewSinkSize(size int) *Sink {
	if size < 1 {
		size = DefaultSinkBuffer
	}

	sink := &Sink{
		id:      uuid.New().String(),
		channel: make(chan Message, size),
		source:  s,
	}

	s.sinksLock.Lock()
	s.sinks[sink.id] = sink
	s.sinksLock.Unlock()

	s.logger.Debug("added watcher",
		zap.String("channel_id", sink.id))
	return sink
}

// SinkCount returns the number of sinks currently attached to this source.
func (s *Source) SinkCount() int {
	s.sinksLock.Lock()
	defer s.sinksLock.Unlock()

	return len(s.sinks)
}

// SendMessage sends a message to all created sinks.
// A sink whose buffer is full misses the message rather than stalling the sender.
func (s *Source) SendMessage(msg Message) {
	s.sinksLock.Lock()
	defer s.sinksLock.Unlock()

	for _, sink := range s.sinks {
		select {
		case sink.channel <- msg:
		default:
			s.logger.Debug("channel blocked",
				zap.String("channel_id", sink.id),
				zap.String("message", msg.String()),
			)
		}
	}
}

// removeSink detaches the sink and reports whether it was still attached.
func (s *Source) removeSink(sink *Sink) bool {
	s.sinksLock.Lock()
	defer s.sinksLock.Unlock()

	if _, ok := s.sinks[sink.id]; !ok {
		return false
	}
	delete(s.sinks, sink.id)
	return true
}
