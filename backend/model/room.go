package model

import (
	"errors"
	"sync"
)

const (
	DefaultMaxParticipants = 2
)

var (
	ErrRoomIsFull    = errors.New("room is full")
	ErrAlreadyMember = errors.New("session is already a member of this room")
)

// Room groups the sessions that negotiate with each other.
// Members are kept in join order.
type Room struct {
	ID string

	mx       *sync.Mutex
	capacity int
	members  []*Session
}

func NewRoom(id string, capacity int) *Room {
	if capacity <= 0 {
		capacity = DefaultMaxParticipants
	}
	return &Room{
		ID:       id,
		mx:       &sync.Mutex{},
		capacity: capacity,
		members:  make([]*Session, 0, capacity),
	}
}

func (r *Room) Add(sess *Session) error {
	r.mx.Lock()
	defer r.mx.Unlock()

	for _, m := range r.members {
		if m.ID == sess.ID {
			return ErrAlreadyMember
		}
	}
	if len(r.members) >= r.capacity {
		return ErrRoomIsFull
	}
	r.members = append(r.members, sess)
	return nil
}

// Remove reports whether the session was a member.
func (r *Room) Remove(sessionID string) bool {
	r.mx.Lock()
	defer r.mx.Unlock()

	for i, m := range r.members {
		if m.ID == sessionID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) Has(sessionID string) bool {
	r.mx.Lock()
	defer r.mx.Unlock()

	for _, m := range r.members {
		if m.ID == sessionID {
			return true
		}
	}
	return false
}

func (r *Room) Size() int {
	r.mx.Lock()
	defer r.mx.Unlock()
	return len(r.members)
}

func (r *Room) Capacity() int {
	return r.capacity
}

func (r *Room) Full() bool {
	r.mx.Lock()
	defer r.mx.Unlock()
	return len(r.members) >= r.capacity
}

// Members returns a copy of the member list.
func (r *Room) Members() []*Session {
	r.mx.Lock()
	defer r.mx.Unlock()

	out := make([]*Session, len(r.members))
	copy(out, r.members)
	return out
}
