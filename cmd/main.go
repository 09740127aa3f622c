package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwrk-planet/room-relay/config"
	"github.com/cwrk-planet/room-relay/internal/bus"
	"github.com/cwrk-planet/room-relay/internal/metrics"
	"github.com/cwrk-planet/room-relay/internal/moderation"
	"github.com/cwrk-planet/room-relay/internal/relay"
	"github.com/cwrk-planet/room-relay/internal/service"
	grpcx "github.com/cwrk-planet/room-relay/internal/transport/grpc"
	httpx "github.com/cwrk-planet/room-relay/internal/transport/http"
	"github.com/cwrk-planet/room-relay/internal/transport/ws"
	"github.com/cwrk-planet/room-relay/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	// --- config ---
	// a missing .env is fine; the environment may be set by the runtime
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting room-relay",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "directory", cfg.Directory.Backend)

	// cancelled on shutdown; live sessions close with 1001
	ctx, cancelSessions := context.WithCancel(context.Background())
	defer cancelSessions()

	// --- storage ---
	store, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("open backend: %v", err)
	}
	defer store.Close()

	directory := service.NewDirectory(store.rooms)
	checks := store.checks

	// --- bus ---
	var roomBus relay.Bus = relay.NewLocalBus()
	if cfg.Redis.Enabled {
		rb, err := bus.NewRedisBus(ctx, bus.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, slog.Default())
		if err != nil {
			log.Fatalf("redis bus: %v", err)
		}
		defer func() { _ = rb.Close() }()
		if err := rb.Start(ctx); err != nil {
			log.Fatalf("redis bus: %v", err)
		}
		roomBus = rb
		checks = append(checks, httpx.Check{Name: "redis", Fn: rb.Ping})
		slog.Info("redis bus ready", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
	}

	// --- relay ---
	m := metrics.New()
	relayOpts := []relay.Option{relay.WithObserver(m), relay.WithLogger(slog.Default())}

	if len(cfg.Chat.CensoredWords) > 0 {
		mod, err := moderation.New(cfg.Chat.CensoredWords, []rune(cfg.Chat.CensorChar)[0])
		if err != nil {
			log.Fatalf("moderation: %v", err)
		}
		relayOpts = append(relayOpts, relay.WithCensor(mod))
	}

	var chatSvc *service.ChatService
	if store.chat != nil {
		chatSvc = service.NewChatService(store.chat)
		relayOpts = append(relayOpts, relay.WithArchive(chatSvc))
	}

	rl := relay.New(directory, roomBus, relay.Options{
		SendBuffer:       cfg.Relay.SendBuffer,
		DispatchBuffer:   cfg.Relay.DispatchBuffer,
		MaxChatLength:    cfg.Chat.MaxLength,
		ValidateSDP:      cfg.Signaling.ValidateSDP,
		EnforceCapacity:  cfg.Relay.EnforceCapacity,
		ICEServers:       cfg.Signaling.WebRTC(),
		DirectoryTimeout: cfg.Directory.TimeoutOr(),
	}, relayOpts...)

	// --- WS & HTTP ---
	wsServer := ws.NewServer(ctx, rl, ws.KeepAlive{
		MaxMessageBytes: cfg.Relay.MaxMessageBytes,
		PingInterval:    cfg.Relay.PingIntervalOr(),
		PongWait:        cfg.Relay.PongWaitOr(),
		WriteWait:       cfg.Relay.WriteWaitOr(),
	}, cfg.CORS.AllowedOrigins)

	var history httpx.ChatSvc
	if chatSvc != nil {
		history = chatSvc
	}
	handler := httpx.NewHandler(directory, history, rl.Registry(), checks...)
	router := httpx.NewRouter(handler, wsServer.HandleWS, m.Handler(), httpx.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		JWTSecret:      cfg.Auth.JWTSecret,
		AuthRequired:   cfg.Auth.Required,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeoutOr(),
	}

	// --- gRPC ---
	grpcSrv := grpcx.NewServer()

	// --- run both servers ---
	errCh := make(chan error, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			errCh <- err
			return
		}
		slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
		grpcSrv.SetServing(true)
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	grpcSrv.SetServing(false)

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeoutOr())
	defer cancel()

	cancelSessions()
	// teardown still updates the directory, so storage closes after the drain
	if err := rl.Drain(ctxShutdown); err != nil {
		_, live := rl.Registry().Stats()
		slog.Warn("sessions still open at shutdown", "live", live, "err", err)
	}
	if err := httpSrv.Shutdown(ctxShutdown); err != nil {
		slog.Warn("http shutdown", "err", err)
	}
	grpcSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
