package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/room-relay/config"
	"github.com/cwrk-planet/room-relay/internal/badgerstore"
	"github.com/cwrk-planet/room-relay/internal/memstore"
	"github.com/cwrk-planet/room-relay/internal/postgres"
	"github.com/cwrk-planet/room-relay/internal/service"
	httpx "github.com/cwrk-planet/room-relay/internal/transport/http"

	"github.com/dgraph-io/badger/v4"
)

// backend is the storage selected by directory.backend.
type backend struct {
	rooms service.RoomRepository
	// nil unless chat.archive is set
	chat    service.ChatStore
	checks  []httpx.Check
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Directory.Backend {
	case "postgres":
		return openPostgres(ctx, cfg)
	case "badger":
		return openBadger(ctx, cfg)
	default:
		return openMemory(ctx, cfg)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config) (*backend, error) {
	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:             cfg.Postgres.DSN,
		MaxConns:        cfg.Postgres.MaxConns,
		ApplicationName: cfg.Logging.Service,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
	}

	b := &backend{
		rooms:   postgres.NewRoomRepository(pool),
		checks:  []httpx.Check{{Name: "postgres", Fn: func(ctx context.Context) error { return postgres.Ping(ctx, pool) }}},
		closers: []func(){pool.Close},
	}
	if cfg.Chat.Archive {
		b.chat = postgres.NewChatRepository(pool)
	}
	slog.Info("room directory ready", "backend", "postgres")
	return b, nil
}

func openBadger(ctx context.Context, cfg *config.Config) (*backend, error) {
	db, err := badgerstore.Open(cfg.Badger.Path, cfg.Badger.InMemory)
	if err != nil {
		return nil, fmt.Errorf("badger: %w", err)
	}
	rooms := badgerstore.NewRoomRepository(db)
	if err := service.Seed(ctx, rooms, cfg.Directory.SeedRooms, cfg.Directory.SeedCapacity); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed rooms: %w", err)
	}

	b := &backend{
		rooms:   rooms,
		checks:  []httpx.Check{badgerCheck(db)},
		closers: []func(){func() { _ = db.Close() }},
	}
	if cfg.Chat.Archive {
		b.chat = badgerstore.NewChatRepository(db, 0)
	}
	slog.Info("room directory ready", "backend", "badger", "in_memory", cfg.Badger.InMemory)
	return b, nil
}

// openMemory keeps rooms in a map; archived chat goes to an in-memory badger.
func openMemory(ctx context.Context, cfg *config.Config) (*backend, error) {
	rooms := memstore.NewRoomRepository()
	if err := service.Seed(ctx, rooms, cfg.Directory.SeedRooms, cfg.Directory.SeedCapacity); err != nil {
		return nil, fmt.Errorf("seed rooms: %w", err)
	}

	b := &backend{rooms: rooms}
	if cfg.Chat.Archive {
		db, err := badgerstore.Open("", true)
		if err != nil {
			return nil, fmt.Errorf("badger: %w", err)
		}
		b.chat = badgerstore.NewChatRepository(db, 0)
		b.checks = append(b.checks, badgerCheck(db))
		b.closers = append(b.closers, func() { _ = db.Close() })
	}
	slog.Info("room directory ready", "backend", "memory", "rooms", len(cfg.Directory.SeedRooms))
	return b, nil
}

func badgerCheck(db *badger.DB) httpx.Check {
	return httpx.Check{Name: "badger", Fn: func(context.Context) error {
		if db.IsClosed() {
			return badger.ErrDBClosed
		}
		return nil
	}}
}
