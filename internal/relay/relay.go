package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
)

// Conn is one client transport. ReadMessage blocks until a frame arrives or
// the connection fails; Close unblocks it.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close(code int, reason string) error
}

// Censor rewrites chat text before it is relayed.
type Censor interface {
	Censor(text string) string
}

type Options struct {
	SendBuffer       int
	DispatchBuffer   int
	MaxChatLength    int
	ValidateSDP      bool
	EnforceCapacity  bool
	ICEServers       []webrtc.ICEServer
	DirectoryTimeout time.Duration
	PublishTimeout   time.Duration
}

func (o *Options) setDefaults() {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.DispatchBuffer <= 0 {
		o.DispatchBuffer = 64
	}
	if o.DirectoryTimeout <= 0 {
		o.DirectoryTimeout = 3 * time.Second
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 3 * time.Second
	}
	if o.ICEServers == nil {
		o.ICEServers = []webrtc.ICEServer{}
	}
}

type Option func(*Relay)

func WithArchive(a ChatArchive) Option { return func(r *Relay) { r.archive = a } }
func WithCensor(c Censor) Option       { return func(r *Relay) { r.censor = c } }
func WithObserver(o Observer) Option   { return func(r *Relay) { r.obs = o } }
func WithLogger(l *slog.Logger) Option { return func(r *Relay) { r.log = l } }

// Relay admits connections into rooms and routes their messages.
type Relay struct {
	dir      RoomDirectory
	bus      Bus
	registry *Registry
	decoder  *Decoder
	opts     Options

	archive ChatArchive
	censor  Censor
	obs     Observer
	log     *slog.Logger

	drainMu  sync.Mutex
	draining bool
	sessions sync.WaitGroup
}

func New(dir RoomDirectory, bus Bus, opts Options, options ...Option) *Relay {
	opts.setDefaults()
	r := &Relay{
		dir:      dir,
		bus:      bus,
		registry: NewRegistry(),
		decoder:  NewDecoder(opts.MaxChatLength, opts.ValidateSDP),
		opts:     opts,
		obs:      nopObserver{},
		log:      slog.Default(),
	}
	for _, o := range options {
		o(r)
	}
	return r
}

func (r *Relay) Registry() *Registry { return r.registry }

// Serve runs one session on conn until it closes. It returns the admission
// error when the connection was refused, nil otherwise. Once Drain has been
// called, conn is closed with 1001 and ErrDraining is returned.
func (r *Relay) Serve(ctx context.Context, roomID string, conn Conn) error {
	r.drainMu.Lock()
	if r.draining {
		r.drainMu.Unlock()
		if err := conn.Close(CloseGoingAway, "server shutting down"); err != nil {
			r.log.Debug("close connection", "err", err)
		}
		return ErrDraining
	}
	r.sessions.Add(1)
	r.drainMu.Unlock()
	defer r.sessions.Done()

	return newSession(r, roomID, conn).run(ctx)
}

// Drain refuses further Serve calls and waits until every running one has
// returned, or ctx is done.
func (r *Relay) Drain(ctx context.Context) error {
	r.drainMu.Lock()
	r.draining = true
	r.drainMu.Unlock()

	done := make(chan struct{})
	go func() {
		r.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// directoryCtx bounds a directory call. It survives cancellation of ctx so
// that teardown bookkeeping still runs after the session context is gone.
func (r *Relay) directoryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), r.opts.DirectoryTimeout)
}
