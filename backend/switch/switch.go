package _switch

import (
	"errors"
	"sync"

	"github.com/adwski/webrtc-signaling/backend/metrics"
	"github.com/adwski/webrtc-signaling/backend/model"
	"github.com/rs/zerolog"
)

// Drop reasons returned by Handle. None of them is reported to the client.
var (
	ErrUnknownType   = errors.New("unknown message type")
	ErrRoomNotFound  = errors.New("room is not found")
	ErrNotAMember    = errors.New("sender is not a member of this room")
	ErrAlreadyInRoom = errors.New("session is already in this room")
	ErrSessionClosed = errors.New("session is closed")
)

type (
	RoomStore interface {
		GetOrCreate(roomID string) *model.Room
		GetRoom(roomID string) (*model.Room, error)
		RemoveIfEmpty(roomID string) bool
	}

	Config struct {
		Logger  *zerolog.Logger
		Store   RoomStore
		Metrics *metrics.Metrics

		// PeerLeftNotice makes remaining members receive a peer-left
		// message when the other member leaves the room.
		PeerLeftNotice bool
	}

	// Switch is the signaling dispatcher. Every protocol effect is applied
	// under a single lock, so a capacity check and the room-info broadcast
	// that follows it are never interleaved with another join.
	Switch struct {
		logger   zerolog.Logger
		mx       *sync.Mutex
		store    RoomStore
		metrics  *metrics.Metrics
		sessions map[string]*model.Session

		peerLeftNotice bool
	}
)

func NewSwitch(cfg Config) *Switch {
	return &Switch{
		logger:         cfg.Logger.With().Str("component", "switch").Logger(),
		mx:             &sync.Mutex{},
		store:          cfg.Store,
		metrics:        cfg.Metrics,
		sessions:       make(map[string]*model.Session),
		peerLeftNotice: cfg.PeerLeftNotice,
	}
}

func (sw *Switch) Connect(sess *model.Session) {
	sw.mx.Lock()
	defer sw.mx.Unlock()

	sw.sessions[sess.ID] = sess
	sw.logger.Debug().Str("session", sess.ID).Msg("session connected")
}

// Disconnect closes the session and releases its room slot.
// The room is deleted if it becomes empty.
func (sw *Switch) Disconnect(sess *model.Session) {
	sess.Close()

	sw.mx.Lock()
	defer sw.mx.Unlock()

	delete(sw.sessions, sess.ID)
	if roomID := sess.RoomID(); roomID != "" {
		sw.leave(sess, roomID)
	}
	sw.logger.Debug().Str("session", sess.ID).Msg("session disconnected")
}

// Handle applies one inbound frame. A non-nil error means the frame was
// dropped; the only reply a client can ever get for a failed request is room-full.
func (sw *Switch) Handle(sess *model.Session, raw []byte) error {
	msg, err := model.Decode(raw)
	if err != nil {
		return err
	}

	sw.mx.Lock()
	defer sw.mx.Unlock()

	if sess.Closed() {
		return ErrSessionClosed
	}

	switch msg.Type {
	case model.MessageTypeJoin:
		return sw.join(sess, msg.RoomID)
	case model.MessageTypeSignal:
		return sw.signal(sess, msg)
	default:
		return ErrUnknownType
	}
}

func (sw *Switch) Sessions() int {
	sw.mx.Lock()
	defer sw.mx.Unlock()
	return len(sw.sessions)
}

func (sw *Switch) join(sess *model.Session, roomID string) error {
	logger := sw.logger.With().
		Str("session", sess.ID).
		Str("room", roomID).
		Logger()

	prev := sess.RoomID()
	if prev == roomID {
		return ErrAlreadyInRoom
	}

	room := sw.store.GetOrCreate(roomID)
	if room.Full() {
		sw.deliver(sess, model.NewRoomFull(roomID), &logger)
		sw.metrics.Inc(metrics.JoinRejectedFull)
		logger.Debug().Msg("join rejected, room is full")
		return model.ErrRoomIsFull
	}

	if prev != "" {
		logger.Debug().Str("prevRoom", prev).Msg("leaving previous room")
		sw.leave(sess, prev)
	}

	if err := room.Add(sess); err != nil {
		sw.store.RemoveIfEmpty(roomID)
		return err
	}
	sess.SetRoomID(roomID)
	sw.metrics.Inc(metrics.JoinAccepted)

	members := room.Members()
	count := len(members)
	for _, peer := range members {
		isInitiator := peer.ID == sess.ID && count == room.Capacity()
		sw.deliver(peer, model.NewRoomInfo(roomID, count, isInitiator), &logger)
	}
	logger.Debug().Int("count", count).Msg("session joined room")
	return nil
}

func (sw *Switch) signal(sess *model.Session, msg model.Message) error {
	room, err := sw.store.GetRoom(msg.RoomID)
	if err != nil {
		return ErrRoomNotFound
	}
	if !room.Has(sess.ID) {
		return ErrNotAMember
	}

	logger := sw.logger.With().
		Str("session", sess.ID).
		Str("room", msg.RoomID).
		Logger()

	out := model.NewSignal(msg.RoomID, msg.Payload)
	for _, peer := range room.Members() {
		if peer.ID == sess.ID {
			continue
		}
		if sw.deliver(peer, out, &logger) {
			sw.metrics.Inc(metrics.SignalRelayed)
			logger.Trace().Str("dst", peer.ID).Msg("signal is relayed")
		}
	}
	return nil
}

// leave must be called with sw.mx held.
func (sw *Switch) leave(sess *model.Session, roomID string) {
	sess.SetRoomID("")

	room, err := sw.store.GetRoom(roomID)
	if err != nil {
		return
	}
	room.Remove(sess.ID)
	if sw.store.RemoveIfEmpty(roomID) {
		sw.logger.Debug().Str("room", roomID).Msg("room deleted")
		return
	}
	if !sw.peerLeftNotice {
		return
	}
	logger := sw.logger.With().Str("room", roomID).Str("src", sess.ID).Logger()
	for _, peer := range room.Members() {
		sw.deliver(peer, model.NewPeerLeft(roomID), &logger)
	}
}

// deliver never blocks. Closed sessions and full queues are skipped.
func (sw *Switch) deliver(dst *model.Session, msg model.Message, logger *zerolog.Logger) bool {
	if dst.Send(msg) {
		return true
	}
	sw.metrics.Inc(metrics.SendDropped)
	logger.Debug().
		Str("dst", dst.ID).
		Str("type", msg.Type).
		Msg("message dropped, destination is not writable")
	return false
}
