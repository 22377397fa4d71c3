package stream

// Sink is an implementation of a message sink; it receives messages broadcast by its parent source.
type Sink struct {
	id      string
	channel chan Message

	source *Source
}

// ID returns the identifier of this sink.
func (s *Sink) ID() string {
	return s.id
}

// Messages returns the read channel of messages broadcast by the source.
// The backing channel is buffered to allow for additional messages to be generated
// while the current message is being processed; that being said the sink has a responsibility
// to consume messages from this channel as quickly as possible.
func (s *Sink) Messages() <-chan Message {
	return s.channel
}

// Close releases any resources allocated as part of this sink's creation.
// It is safe to call more than once.
func (s *Sink) Close() {
	// The channel is closed while the source can no longer reach it.
	if s.source.removeSink(s) {
		close(s.channel)
	}
}
