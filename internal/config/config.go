package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel        string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	BackendURL      string        `yaml:"backend-url" env:"BACKEND_URL" env-default:"http://localhost:3000"`
	ReconnectDelay  time.Duration `yaml:"reconnect-delay" env:"RECONNECT_DELAY" env-default:"1s"`
	NoticeTTL       time.Duration `yaml:"notice-ttl" env:"NOTICE_TTL" env-default:"2500ms"`
	FallbackTimeout time.Duration `yaml:"fallback-timeout" env:"FALLBACK_TIMEOUT" env-default:"5s"`
	TraceEvents     bool          `yaml:"trace-events" env:"TRACE_EVENTS" env-default:"false"`
	PlayerName      string        `yaml:"player-name" env:"PLAYER_NAME"`
	Mirror          Mirror        `yaml:"mirror"`
	Redis           Redis         `yaml:"redis"`
}

// Mirror - optional publication of the session to Redis for out-of-process viewers.
type Mirror struct {
	Enabled bool          `yaml:"enabled" env:"MIRROR_ENABLED" env-default:"false"`
	TTL     time.Duration `yaml:"ttl" env:"MIRROR_TTL" env-default:"10m"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// MustLoad - loads config.yml when present, environment and defaults otherwise.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("unable to load config: %w", err))
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	_, err := os.Stat(path)

	switch {
	case err == nil:
		if err = cleanenv.ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if err = cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to read environment: %w", err)
		}
	default:
		return nil, fmt.Errorf("unable to stat config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
