package memory

import (
	"errors"
	"sync"

	"github.com/adwski/webrtc-signaling/backend/model"
)

var (
	ErrRoomNotFound = errors.New("room is not found")
)

type Stats struct {
	Rooms     int `json:"rooms"`
	FullRooms int `json:"fullRooms"`
	Occupants int `json:"occupants"`
}

// Registry maps room ids to rooms. Rooms are created lazily
// and must be removed once their last member leaves.
type Registry struct {
	mx              *sync.Mutex
	db              map[string]*model.Room
	maxParticipants int
}

func NewRegistry(maxParticipants int) *Registry {
	if maxParticipants <= 0 {
		maxParticipants = model.DefaultMaxParticipants
	}
	return &Registry{
		mx:              &sync.Mutex{},
		db:              make(map[string]*model.Room),
		maxParticipants: maxParticipants,
	}
}

func (reg *Registry) GetOrCreate(roomID string) *model.Room {
	reg.mx.Lock()
	defer reg.mx.Unlock()

	room, ok := reg.db[roomID]
	if !ok {
		room = model.NewRoom(roomID, reg.maxParticipants)
		reg.db[roomID] = room
	}
	return room
}

func (reg *Registry) GetRoom(roomID string) (*model.Room, error) {
	reg.mx.Lock()
	defer reg.mx.Unlock()

	room, ok := reg.db[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (reg *Registry) Remove(roomID string) {
	reg.mx.Lock()
	defer reg.mx.Unlock()

	delete(reg.db, roomID)
}

// RemoveIfEmpty deletes the room only if it has no members left.
func (reg *Registry) RemoveIfEmpty(roomID string) bool {
	reg.mx.Lock()
	defer reg.mx.Unlock()

	room, ok := reg.db[roomID]
	if !ok || room.Size() > 0 {
		return false
	}
	delete(reg.db, roomID)
	return true
}

func (reg *Registry) Len() int {
	reg.mx.Lock()
	defer reg.mx.Unlock()
	return len(reg.db)
}

func (reg *Registry) Stats() Stats {
	reg.mx.Lock()
	defer reg.mx.Unlock()

	st := Stats{Rooms: len(reg.db)}
	for _, room := range reg.db {
		size := room.Size()
		st.Occupants += size
		if size >= room.Capacity() {
			st.FullRooms++
		}
	}
	return st
}
