package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

type Backend string

const (
	BackendStd Backend = "std" // text in dev, JSON elsewhere
	BackendZap Backend = "zap" // zap core behind slog
)

type Config struct {
	Service    string
	Version    string
	InstanceID string

	Level   slog.Level
	Env     Env
	Backend Backend // default: std for dev, zap for stage/prod
	Debug   bool

	// Output defaults to os.Stdout.
	Output io.Writer

	// zap sampling per second
	SampleInitial    int
	SampleThereafter int

	AddSource bool
}

func (c Config) level() slog.Level {
	if c.Debug && c.Level == 0 {
		return slog.LevelDebug
	}
	return c.Level
}

// fill sets everything Init relies on that the caller left empty.
func (c *Config) fill() {
	if c.Env == "" {
		c.Env = DetectEnv()
	}
	if c.Service == "" {
		c.Service = "room-relay"
	}
	if c.Output == nil {
		c.Output = os.Stdout
	}
	if c.InstanceID == "" {
		hn, _ := os.Hostname()
		c.InstanceID = hn + "-" + uuid.NewString()[:8]
	}
	if c.Backend == "" {
		c.Backend = BackendZap
		if c.Env == EnvDev {
			c.Backend = BackendStd
		}
	}
}

// attrs are attached to every record; instance_id tells relay replicas apart
// when rooms span instances over the redis bus.
func (c Config) attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("service", c.Service),
		slog.String("env", string(c.Env)),
		slog.String("version", c.Version),
		slog.String("instance_id", c.InstanceID),
		slog.Int("pid", os.Getpid()),
		slog.Time("started_at", time.Now()),
	}
}
