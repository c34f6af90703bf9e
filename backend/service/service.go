package service

import (
	"context"
	"errors"

	"github.com/adwski/webrtc-signaling/backend/metrics"
	"github.com/adwski/webrtc-signaling/backend/model"
	"github.com/adwski/webrtc-signaling/backend/storage/memory"
	_switch "github.com/adwski/webrtc-signaling/backend/switch"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrCreate = errors.New("unable to create signaling session")
)

type (
	RoomStore interface {
		Stats() memory.Stats
	}

	Switch interface {
		Connect(sess *model.Session)
		Disconnect(sess *model.Session)
		Handle(sess *model.Session, raw []byte) error
		Sessions() int
	}

	Stats struct {
		memory.Stats
		Sessions int `json:"sessions"`
	}

	Service struct {
		store     RoomStore
		sw        Switch
		metrics   *metrics.Metrics
		logger    zerolog.Logger
		queueSize int
	}

	Config struct {
		RoomStore RoomStore
		Switch    Switch
		Metrics   *metrics.Metrics
		Logger    *zerolog.Logger

		// SendQueueSize bounds outbound messages buffered per session.
		SendQueueSize int
	}
)

func NewService(cfg Config) *Service {
	return &Service{
		store:     cfg.RoomStore,
		sw:        cfg.Switch,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With().Str("component", "service").Logger(),
		queueSize: cfg.SendQueueSize,
	}
}

func (svc *Service) CreateSignalingSession(ctx context.Context) (*model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(ErrCreate, err)
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.Join(ErrCreate, err)
	}
	sess := model.NewSession(id.String(), svc.queueSize)
	svc.sw.Connect(sess)
	svc.metrics.Inc(metrics.SessionOpened)

	svc.logger.Debug().
		Str("session", sess.ID).
		Msg("signaling session created")
	return sess, nil
}

func (svc *Service) DeleteSignalingSession(_ context.Context, sess *model.Session) error {
	svc.sw.Disconnect(sess)
	svc.metrics.Inc(metrics.SessionClosed)

	svc.logger.Debug().
		Str("session", sess.ID).
		Msg("signaling session deleted")
	return nil
}

// HandleMessage passes an inbound frame to the switch. Dropped frames are
// only logged and counted, the sender is never told about them.
func (svc *Service) HandleMessage(sess *model.Session, raw []byte) {
	err := svc.sw.Handle(sess, raw)
	if err == nil {
		return
	}
	reason := dropReason(err)
	svc.metrics.Drop(reason)
	svc.logger.Debug().
		Err(err).
		Str("session", sess.ID).
		Str("reason", reason).
		Msg("inbound message dropped")
}

func (svc *Service) Stats() Stats {
	return Stats{
		Stats:    svc.store.Stats(),
		Sessions: svc.sw.Sessions(),
	}
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, model.ErrMalformed):
		return "malformed"
	case errors.Is(err, model.ErrNoRoomID):
		return "no_room_id"
	case errors.Is(err, _switch.ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, _switch.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, _switch.ErrNotAMember):
		return "not_a_member"
	case errors.Is(err, _switch.ErrAlreadyInRoom):
		return "already_in_room"
	case errors.Is(err, _switch.ErrSessionClosed):
		return "session_closed"
	case errors.Is(err, model.ErrRoomIsFull):
		return "room_full"
	default:
		return "other"
	}
}
