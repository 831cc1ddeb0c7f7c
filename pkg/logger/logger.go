package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

type Env string

const (
	EnvDev   Env = "dev"
	EnvStage Env = "stage"
	EnvProd  Env = "prod"
)

type Backend string

const (
	BackendStd Backend = "std" // текстовый handler slog
	BackendZap Backend = "zap" // JSON через slog-zap, с sampling'ом
)

type Config struct {
	// метаданные сервиса
	Service    string
	Version    string
	InstanceID string

	// управление выводом
	Level   slog.Level
	Env     Env
	Backend Backend // default: zap в stage/prod, std в dev
	Debug   bool

	// zap sampling
	SampleInitial    int
	SampleThereafter int

	AddSource bool
}

var def *slog.Logger

// Init настраивает slog под среду и делает логгер дефолтным.
func Init(cfg Config) {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	}
	if cfg.Service == "" {
		cfg.Service = "presence-service"
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = newInstanceID()
	}
	if cfg.Backend == "" {
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		} else {
			cfg.Backend = BackendZap
		}
	}

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg)
	default:
		h = newStdHandler(cfg)
	}

	h = h.WithAttrs([]slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("version", cfg.Version),
		slog.String("instance_id", cfg.InstanceID),
	})

	base := slog.New(h)
	slog.SetDefault(base)
	def = base
}

func L() *slog.Logger {
	if def != nil {
		return def
	}

	Init(Config{})
	return def
}

func DetectEnv() Env {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV"))) {
	case "prod", "production":
		return EnvProd
	case "stage", "staging", "preprod", "pre-production":
		return EnvStage
	default:
		return EnvDev
	}
}

func newInstanceID() string {
	hn, _ := os.Hostname()
	return hn + "-" + uuid.New().String()[:8]
}

func levelFor(cfg Config) slog.Level {
	if cfg.Debug && cfg.Level == 0 {
		return slog.LevelDebug
	}
	return cfg.Level
}
