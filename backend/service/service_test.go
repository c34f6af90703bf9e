package service_test

import (
	"context"
	"testing"

	"github.com/adwski/webrtc-signaling/backend/metrics"
	"github.com/adwski/webrtc-signaling/backend/service"
	"github.com/adwski/webrtc-signaling/backend/storage/memory"
	_switch "github.com/adwski/webrtc-signaling/backend/switch"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() (*service.Service, *metrics.Metrics) {
	logger := zerolog.Nop()
	reg := memory.NewRegistry(0)
	mtr := metrics.New()
	svc := service.NewService(service.Config{
		RoomStore: reg,
		Switch: _switch.NewSwitch(_switch.Config{
			Logger:  &logger,
			Store:   reg,
			Metrics: mtr,
		}),
		Metrics:       mtr,
		Logger:        &logger,
		SendQueueSize: 8,
	})
	return svc, mtr
}

func TestService_SessionLifecycle(t *testing.T) {
	svc, mtr := newService()
	ctx := context.Background()

	a, err := svc.CreateSignalingSession(ctx)
	require.NoError(t, err)
	b, err := svc.CreateSignalingSession(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	_, err = uuid.Parse(a.ID)
	assert.NoError(t, err)

	svc.HandleMessage(a, []byte(`{"type":"join","roomId":"r1"}`))
	svc.HandleMessage(b, []byte(`{"type":"join","roomId":"r1"}`))
	assert.Equal(t, service.Stats{
		Stats:    memory.Stats{Rooms: 1, FullRooms: 1, Occupants: 2},
		Sessions: 2,
	}, svc.Stats())

	require.NoError(t, svc.DeleteSignalingSession(ctx, a))
	require.NoError(t, svc.DeleteSignalingSession(ctx, b))
	assert.Equal(t, service.Stats{}, svc.Stats())

	assert.Equal(t, uint64(2), mtr.Get(metrics.SessionOpened))
	assert.Equal(t, uint64(2), mtr.Get(metrics.SessionClosed))
	assert.Equal(t, uint64(2), mtr.Get(metrics.JoinAccepted))
}

func TestService_CreateSignalingSessionCanceled(t *testing.T) {
	svc, mtr := newService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CreateSignalingSession(ctx)
	require.ErrorIs(t, err, service.ErrCreate)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, mtr.Get(metrics.SessionOpened))
}

func TestService_HandleMessageDrops(t *testing.T) {
	tests := []struct {
		name   string
		frames []string
		metric string
	}{
		{
			name:   "malformed",
			frames: []string{`not json`},
			metric: "drop_malformed",
		},
		{
			name:   "no room id",
			frames: []string{`{"type":"join"}`},
			metric: "drop_no_room_id",
		},
		{
			name:   "unknown type",
			frames: []string{`{"type":"bye","roomId":"r1"}`},
			metric: "drop_unknown_type",
		},
		{
			name:   "room not found",
			frames: []string{`{"type":"signal","roomId":"r1","payload":1}`},
			metric: "drop_room_not_found",
		},
		{
			name: "already in room",
			frames: []string{
				`{"type":"join","roomId":"r1"}`,
				`{"type":"join","roomId":"r1"}`,
			},
			metric: "drop_already_in_room",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mtr := newService()
			sess, err := svc.CreateSignalingSession(context.Background())
			require.NoError(t, err)

			for _, f := range tt.frames {
				svc.HandleMessage(sess, []byte(f))
			}
			assert.Equal(t, uint64(1), mtr.Get(tt.metric))
		})
	}
}

func TestService_RoomFullIsCounted(t *testing.T) {
	svc, mtr := newService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		sess, err := svc.CreateSignalingSession(ctx)
		require.NoError(t, err)
		svc.HandleMessage(sess, []byte(`{"type":"join","roomId":"r1"}`))
	}
	assert.Equal(t, uint64(1), mtr.Get("drop_room_full"))
	assert.Equal(t, uint64(1), mtr.Get(metrics.JoinRejectedFull))
}
