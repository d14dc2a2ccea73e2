package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/actionclient"
	"github.com/braydenokley13-ux/Bow-Platform-sub000/pkg/logging"
)

var ErrConfigRead = errors.New("failed to read config file")

const (
	defaultExecutorPort = "8090"
	defaultMaxSkew      = 5 * time.Minute
)

type Backend struct {
	URL           string `mapstructure:"url"`
	SigningSecret string `mapstructure:"signing_secret"`
	TimeoutMS     string `mapstructure:"timeout_ms"`
}

type Portal struct {
	Backend Backend        `mapstructure:"backend"`
	Log     logging.Config `mapstructure:"log"`
}

type Executor struct {
	Port          string         `mapstructure:"port"`
	SigningSecret string         `mapstructure:"signing_secret"`
	MaxSkewMS     string         `mapstructure:"max_skew_ms"`
	RedisAddr     string         `mapstructure:"redis_addr"`
	DatabaseURL   string         `mapstructure:"database_url"`
	Log           logging.Config `mapstructure:"log"`
}

// ClientConfig does not validate presence of URL or secret; the client's
// pre-flight check reports those as CONFIG_MISSING.
func (p Portal) ClientConfig() actionclient.Config {
	timeout := actionclient.DefaultTimeout
	if ms, ok := parseMillis(p.Backend.TimeoutMS); ok {
		timeout = actionclient.TimeoutFromMillis(ms)
	}
	return actionclient.Config{
		BackendURL:    strings.TrimSpace(p.Backend.URL),
		SigningSecret: p.Backend.SigningSecret,
		Timeout:       timeout,
	}
}

func (e Executor) MaxSkew() time.Duration {
	ms, ok := parseMillis(e.MaxSkewMS)
	if !ok || ms <= 0 || math.IsInf(ms, 0) || ms > float64(math.MaxInt64/int64(time.Millisecond)) {
		return defaultMaxSkew
	}
	return time.Duration(ms * float64(time.Millisecond))
}

func (e Executor) Validate() error {
	if strings.TrimSpace(e.SigningSecret) == "" {
		return errors.New("executor signing secret is required")
	}
	return nil
}

func parseMillis(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	ms, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(ms) {
		return 0, false
	}
	return ms, true
}

var portalEnv = map[string]string{
	"backend.url":            "PORTAL_BACKEND_URL",
	"backend.signing_secret": "PORTAL_SIGNING_SECRET",
	"backend.timeout_ms":     "PORTAL_BACKEND_TIMEOUT_MS",
	"log.level":              "PORTAL_LOG_LEVEL",
	"log.format":             "PORTAL_LOG_FORMAT",
	"log.output":             "PORTAL_LOG_OUTPUT",
}

var executorEnv = map[string]string{
	"port":           "EXECUTOR_PORT",
	"signing_secret": "EXECUTOR_SIGNING_SECRET",
	"max_skew_ms":    "EXECUTOR_MAX_SKEW_MS",
	"redis_addr":     "EXECUTOR_REDIS_ADDR",
	"database_url":   "EXECUTOR_DATABASE_URL",
	"log.level":      "EXECUTOR_LOG_LEVEL",
	"log.format":     "EXECUTOR_LOG_FORMAT",
	"log.output":     "EXECUTOR_LOG_OUTPUT",
}

// LoadPortal reads an optional YAML file and lets PORTAL_* variables
// override it. An empty path means environment only.
func LoadPortal(path string) (Portal, error) {
	v, err := newViper(path, portalEnv)
	if err != nil {
		return Portal{}, err
	}
	var out Portal
	if err := v.Unmarshal(&out); err != nil {
		return Portal{}, fmt.Errorf("unmarshal portal config: %w", err)
	}
	return out, nil
}

func LoadExecutor(path string) (Executor, error) {
	v, err := newViper(path, executorEnv)
	if err != nil {
		return Executor{}, err
	}
	v.SetDefault("port", defaultExecutorPort)
	var out Executor
	if err := v.Unmarshal(&out); err != nil {
		return Executor{}, fmt.Errorf("unmarshal executor config: %w", err)
	}
	if err := out.Validate(); err != nil {
		return Executor{}, err
	}
	return out, nil
}

func newViper(path string, env map[string]string) (*viper.Viper, error) {
	v := viper.New()
	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigRead, err)
		}
	}
	return v, nil
}
