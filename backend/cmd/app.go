package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/adwski/webrtc-signaling/backend/metrics"
	httpServer "github.com/adwski/webrtc-signaling/backend/server/http"
	websocketServer "github.com/adwski/webrtc-signaling/backend/server/websocket"
	"github.com/adwski/webrtc-signaling/backend/service"
	store "github.com/adwski/webrtc-signaling/backend/storage/memory"
	sw "github.com/adwski/webrtc-signaling/backend/switch"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

type appConfig struct {
	apiListenAddr  string
	wsListenAddr   string
	logLevel       string
	logPretty      bool
	maxMessageSize int64
	sendQueueSize  int
	pingInterval   time.Duration
	pongWait       time.Duration
	peerLeftNotice bool
}

func parseConfig(args []string, getenv func(string) string) (*appConfig, error) {
	var (
		cfg = &appConfig{}
		fs  = pflag.NewFlagSet("main", pflag.ContinueOnError)
	)
	fs.StringVarP(&cfg.apiListenAddr, "api-listen-addr", "a", ":8080", "api listen address")
	fs.StringVarP(&cfg.wsListenAddr, "ws-listen-addr", "w", ":8888", "websocket signaling listen address")
	fs.StringVarP(&cfg.logLevel, "log-level", "l", "debug", "log level")
	fs.BoolVar(&cfg.logPretty, "log-pretty", false, "human readable console logs")
	fs.Int64Var(&cfg.maxMessageSize, "max-message-size", 64*1024, "max inbound websocket message size in bytes")
	fs.IntVar(&cfg.sendQueueSize, "send-queue-size", 64, "outbound messages buffered per session before dropping")
	fs.DurationVar(&cfg.pingInterval, "ping-interval", 5*time.Second, "websocket ping interval")
	fs.DurationVar(&cfg.pongWait, "pong-wait", 7*time.Second, "time to wait for pong before dropping connection, must exceed ping interval")
	fs.BoolVar(&cfg.peerLeftNotice, "peer-left-notice", false, "notify remaining room member when the other one leaves")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if port := getenv("PORT"); port != "" && !fs.Changed("ws-listen-addr") {
		cfg.wsListenAddr = ":" + port
	}
	return cfg, nil
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := parseConfig(os.Args[1:], os.Getenv)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse command line arguments")
	}

	if cfg.logPretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	lvl, err := zerolog.ParseLevel(cfg.logLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse loglevel")
	}
	logger = logger.Level(lvl)

	var (
		mtr      = metrics.New()
		registry = store.NewRegistry(0)
	)
	svc := service.NewService(service.Config{
		RoomStore: registry,
		Switch: sw.NewSwitch(sw.Config{
			Logger:         &logger,
			Store:          registry,
			Metrics:        mtr,
			PeerLeftNotice: cfg.peerLeftNotice,
		}),
		Metrics:       mtr,
		Logger:        &logger,
		SendQueueSize: cfg.sendQueueSize,
	})
	httpSrv := httpServer.NewServer(httpServer.Config{
		Logger:       &logger,
		StatsService: svc,
		Metrics:      mtr,
		ListenAddr:   cfg.apiListenAddr,
	})
	wsSrv := websocketServer.NewServer(websocketServer.Config{
		Logger:           &logger,
		SignalingService: svc,
		ListenAddr:       cfg.wsListenAddr,
		MaxMessageSize:   cfg.maxMessageSize,
		PingInterval:     cfg.pingInterval,
		PongWait:         cfg.pongWait,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		wg   = &sync.WaitGroup{}
		errc = make(chan error, 2)
	)
	wg.Add(2)
	go httpSrv.Run(ctx, wg, errc)
	go wsSrv.Run(ctx, wg, errc)

	select {
	case err = <-errc:
		logger.Error().Err(err).Msg("unexpected server error, shutting down")
	case <-ctx.Done():
		logger.Warn().Msg("interrupted")
	}
	cancel()
	wg.Wait()
}
