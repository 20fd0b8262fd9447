// Package config loads process configuration: defaults, then an optional
// YAML file, then ECHOES_* environment variables. CLI flags are applied last
// by the caller.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/infinite-echoes/echoes/internal/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ECHOES_"

// Config is the process configuration.
type Config struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	Graph  GraphConfig  `mapstructure:"graph" yaml:"graph"`
	HTTP   HTTPConfig   `mapstructure:"http" yaml:"http"`
	Turn   TurnConfig   `mapstructure:"turn" yaml:"turn"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	OpenAI OpenAIConfig `mapstructure:"openai" yaml:"openai"`
}

type GraphConfig struct {
	// Path of a topology file. Empty uses the built-in turn graph.
	Path             string `mapstructure:"path" yaml:"path"`
	AllowUnreachable bool   `mapstructure:"allow_unreachable" yaml:"allow_unreachable"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type TurnConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	HistoryLimit int           `mapstructure:"history_limit" yaml:"history_limit"`
	MaxInputSize int           `mapstructure:"max_input_size" yaml:"max_input_size"`
}

type StoreConfig struct {
	// Backend is "memory", "file" or "redis".
	Backend  string        `mapstructure:"backend" yaml:"backend"`
	Dir      string        `mapstructure:"dir" yaml:"dir"`
	RedisURL string        `mapstructure:"redis_url" yaml:"redis_url"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
	LockTTL  time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`

	// EncryptionKey is a base64 AES-256 key. When set, session history is
	// stored encrypted. FallbackKeys are tried on load during key rotation.
	EncryptionKey string   `mapstructure:"encryption_key" yaml:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`
	// Redact lists patterns masked out of player messages before saving.
	Redact        []string `mapstructure:"redact" yaml:"redact"`
}

// Keys decodes the encryption keys. active is nil when encryption is off.
func (s StoreConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		return nil, nil, nil
	}
	active, err = decodeKey(s.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("store.encryption_key: %w", err)
	}
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

type OpenAIConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		HTTP:      HTTPConfig{Addr: ":8080"},
		Turn: TurnConfig{
			Timeout:      60 * time.Second,
			HistoryLimit: 20,
			MaxInputSize: 4096,
		},
		Store: StoreConfig{
			Backend: "memory",
			Prefix:  "echoes:session:",
			LockTTL: 30 * time.Second,
		},
	}
}

// envKeys maps environment variables (without prefix) to config keys.
var envKeys = map[string]string{
	"LOG_LEVEL":               "log_level",
	"LOG_FORMAT":              "log_format",
	"GRAPH_PATH":              "graph.path",
	"GRAPH_ALLOW_UNREACHABLE": "graph.allow_unreachable",
	"HTTP_ADDR":               "http.addr",
	"TURN_TIMEOUT":            "turn.timeout",
	"TURN_HISTORY_LIMIT":      "turn.history_limit",
	"MAX_INPUT_SIZE":          "turn.max_input_size",
	"STORE_BACKEND":           "store.backend",
	"STORE_DIR":               "store.dir",
	"REDIS_URL":               "store.redis_url",
	"STORE_PREFIX":            "store.prefix",
	"STORE_TTL":               "store.ttl",
	"STORE_ENCRYPTION_KEY":    "store.encryption_key",
	"LOCK_TTL":                "store.lock_ttl",
	"OPENAI_BASE_URL":         "openai.base_url",
	"OPENAI_MODEL":            "openai.model",
	"OPENAI_MAX_TOKENS":       "openai.max_tokens",
}

// Load builds the configuration. path may be empty; a missing file is an error.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if err := decode(raw, &cfg, true); err != nil {
			return cfg, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}

	env := fromEnv(lookup)
	if err := decode(env, &cfg, false); err != nil {
		return cfg, fmt.Errorf("invalid environment: %w", err)
	}

	return cfg, cfg.Validate()
}

// fromEnv collects the known variables into a nested map keyed like the YAML file.
func fromEnv(lookup func(string) (string, bool)) map[string]any {
	out := make(map[string]any)
	set := func(key, value string) {
		parts := strings.Split(key, ".")
		m := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := m[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				m[p] = next
			}
			m = next
		}
		m[parts[len(parts)-1]] = value
	}

	for name, key := range envKeys {
		if v, ok := lookup(EnvPrefix + name); ok {
			set(key, v)
		}
	}
	// The conventional variable wins only when ours is unset.
	if v, ok := lookup(EnvPrefix + "OPENAI_API_KEY"); ok {
		set("openai.api_key", v)
	} else if v, ok := lookup("OPENAI_API_KEY"); ok {
		set("openai.api_key", v)
	}
	return out
}

func decode(input map[string]any, cfg *Config, strict bool) error {
	if len(input) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsToDuration,
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// secondsToDuration reads bare numbers as seconds: "timeout: 30".
func secondsToDuration(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second, nil
		}
	}
	return data, nil
}

// Validate checks values that cannot be expressed by types.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Backend {
	case "memory", "file":
	case "redis":
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("store.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if _, _, err := c.Store.Keys(); err != nil {
		errs = append(errs, err)
	}
	for _, p := range c.Store.Redact {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("store.redact: %w", err))
		}
	}
	if c.Turn.Timeout < 0 {
		errs = append(errs, errors.New("turn.timeout cannot be negative"))
	}
	if c.Turn.HistoryLimit < 0 {
		errs = append(errs, errors.New("turn.history_limit cannot be negative"))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return l, nil
}
