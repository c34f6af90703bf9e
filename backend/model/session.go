package model

import "sync"

const (
	defaultSendQueueSize = 64
)

// Session is the server side state of one signaling connection.
//
// The room id is owned by the dispatcher and must only be read or
// written while holding the dispatcher lock.
type Session struct {
	ID string

	roomID string
	tx     chan Message
	done   chan struct{}
	once   *sync.Once
}

func NewSession(id string, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = defaultSendQueueSize
	}
	return &Session{
		ID:   id,
		tx:   make(chan Message, queueSize),
		done: make(chan struct{}),
		once: &sync.Once{},
	}
}

func (s *Session) RoomID() string {
	return s.roomID
}

func (s *Session) SetRoomID(roomID string) {
	s.roomID = roomID
}

// Send queues msg for delivery without blocking.
// It reports false if the session is closed or its queue is full.
func (s *Session) Send(msg Message) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.tx <- msg:
		return true
	default:
		return false
	}
}

// TX is drained by the transport writer.
func (s *Session) TX() <-chan Message {
	return s.tx
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
