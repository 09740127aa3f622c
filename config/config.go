package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/pion/webrtc/v4"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. RELAY_HTTP_ADDR.
const EnvPrefix = "RELAY"

type GRPC struct {
	Addr string `yaml:"addr" validate:"required"`
}

type HTTP struct {
	Addr              string `yaml:"addr" validate:"required"`
	ReadHeaderTimeout string `yaml:"readHeaderTimeout" split_words:"true"`
	ShutdownTimeout   string `yaml:"shutdownTimeout" split_words:"true"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // room-relay
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend" validate:"omitempty,oneof=std zap"`
	AddSource bool   `yaml:"addSource" split_words:"true"`
	Debug     bool   `yaml:"debug"`
}

type Directory struct {
	// postgres|badger|memory
	Backend string `yaml:"backend" validate:"oneof=postgres badger memory"`
	// SeedRooms are created on start by badger and memory backends.
	SeedRooms    []string `yaml:"seedRooms" split_words:"true"`
	SeedCapacity int      `yaml:"seedCapacity" split_words:"true" validate:"gte=0"`
	Timeout      string   `yaml:"timeout"`
}

type Postgres struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns" split_words:"true" validate:"gte=0"`
	Migrate  bool   `yaml:"migrate"`
}

type Badger struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"inMemory" split_words:"true"`
}

type Redis struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	// Channel names are Prefix + roomID.
	Prefix string `yaml:"prefix"`
}

type Relay struct {
	SendBuffer      int    `yaml:"sendBuffer" split_words:"true" validate:"gt=0"`
	DispatchBuffer  int    `yaml:"dispatchBuffer" split_words:"true" validate:"gt=0"`
	MaxMessageBytes int64  `yaml:"maxMessageBytes" split_words:"true" validate:"gt=0"`
	PingInterval    string `yaml:"pingInterval" split_words:"true"`
	PongWait        string `yaml:"pongWait" split_words:"true"`
	WriteWait       string `yaml:"writeWait" split_words:"true"`
	EnforceCapacity bool   `yaml:"enforceCapacity" split_words:"true"`
}

type ICEServer struct {
	URLs       []string `yaml:"urls" validate:"min=1,dive,required"`
	Username   string   `yaml:"username"`
	Credential string   `yaml:"credential"`
}

type Signaling struct {
	ValidateSDP bool        `yaml:"validateSDP" envconfig:"VALIDATE_SDP"`
	ICEServers  []ICEServer `yaml:"iceServers" ignored:"true" validate:"dive"`
}

type Chat struct {
	MaxLength     int      `yaml:"maxLength" split_words:"true" validate:"gt=0"`
	CensoredWords []string `yaml:"censoredWords" split_words:"true"`
	CensorChar    string   `yaml:"censorChar" split_words:"true"`
	Archive       bool     `yaml:"archive"`
}

type Auth struct {
	JWTSecret string `yaml:"jwtSecret" envconfig:"JWT_SECRET"`
	Required  bool   `yaml:"required"`
}

type CORS struct {
	// Also applied to the websocket origin check. Empty allows any origin.
	AllowedOrigins []string `yaml:"allowedOrigins" split_words:"true"`
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	GRPC      GRPC      `yaml:"grpc"`
	Logging   Logging   `yaml:"logging"`
	Directory Directory `yaml:"directory"`
	Postgres  Postgres  `yaml:"postgres"`
	Badger    Badger    `yaml:"badger"`
	Redis     Redis     `yaml:"redis"`
	Relay     Relay     `yaml:"relay"`
	Signaling Signaling `yaml:"signaling"`
	Chat      Chat      `yaml:"chat"`
	Auth      Auth      `yaml:"auth"`
	CORS      CORS      `yaml:"cors"`
}

// LoadConfig reads the yaml file at CONFIG_PATH (./config/config.yaml by default),
// applies RELAY_* environment overrides and fills defaults.
func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes yaml, applies environment overrides and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.setDefaults()

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Directory.Backend == "postgres" && c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required for the postgres directory")
	}
	if c.Directory.Backend == "badger" && c.Badger.Path == "" && !c.Badger.InMemory {
		return errors.New("badger.path is required unless badger.inMemory is set")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when redis is enabled")
	}
	if c.Auth.Required && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret is required when auth.required is set")
	}
	if len([]rune(c.Chat.CensorChar)) != 1 {
		return errors.New("chat.censorChar must be a single character")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Logging.Service == "" {
		c.Logging.Service = "room-relay"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}

	if c.Directory.Backend == "" {
		c.Directory.Backend = "postgres"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "room:"
	}

	if c.Relay.SendBuffer == 0 {
		c.Relay.SendBuffer = 256
	}
	if c.Relay.DispatchBuffer == 0 {
		c.Relay.DispatchBuffer = 64
	}
	if c.Relay.MaxMessageBytes == 0 {
		c.Relay.MaxMessageBytes = 1 << 20
	}

	if len(c.Signaling.ICEServers) == 0 {
		c.Signaling.ICEServers = []ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
			{URLs: []string{"stun:stun1.l.google.com:19302"}},
		}
	}

	if c.Chat.MaxLength == 0 {
		c.Chat.MaxLength = 4000
	}
	if c.Chat.CensorChar == "" {
		c.Chat.CensorChar = "*"
	}
	c.Chat.CensoredWords = lo.Compact(lo.Map(c.Chat.CensoredWords, func(w string, _ int) string {
		return strings.TrimSpace(w)
	}))
}

func (h HTTP) ReadHeaderTimeoutOr() time.Duration { return parseDurationOr(5*time.Second, h.ReadHeaderTimeout) }
func (h HTTP) ShutdownTimeoutOr() time.Duration   { return parseDurationOr(10*time.Second, h.ShutdownTimeout) }

func (d Directory) TimeoutOr() time.Duration { return parseDurationOr(3*time.Second, d.Timeout) }

func (r Relay) PingIntervalOr() time.Duration { return parseDurationOr(15*time.Second, r.PingInterval) }
func (r Relay) WriteWaitOr() time.Duration    { return parseDurationOr(5*time.Second, r.WriteWait) }

// PongWaitOr must exceed the ping interval, otherwise idle peers time out between pings.
func (r Relay) PongWaitOr() time.Duration {
	ping := r.PingIntervalOr()
	d := parseDurationOr(2*ping, r.PongWait)
	if d <= ping {
		return 2 * ping
	}
	return d
}

// WebRTC converts the configured ICE servers into the form handed to clients.
func (s Signaling) WebRTC() []webrtc.ICEServer {
	return lo.Map(s.ICEServers, func(srv ICEServer, _ int) webrtc.ICEServer {
		out := webrtc.ICEServer{
			URLs:     lo.Compact(lo.Map(srv.URLs, func(u string, _ int) string { return strings.TrimSpace(u) })),
			Username: strings.TrimSpace(srv.Username),
		}
		if srv.Credential != "" {
			out.Credential = srv.Credential
			out.CredentialType = webrtc.ICECredentialTypePassword
		}
		return out
	})
}

func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
