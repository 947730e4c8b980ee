package config

import (
    "errors"
    "fmt"
    "os"
    "time"

    "github.com/jaminalder/tic-tac-toe-solver/internal/search"
    "gopkg.in/yaml.v2"
)

// RawYamlConfig mirrors the config file.
type RawYamlConfig struct {
    Addr      string `yaml:"addr"`
    LogLevel  string `yaml:"log_level"`
    DevLog    bool   `yaml:"dev_log"`
    Heartbeat string `yaml:"heartbeat"`
    Parallel  bool   `yaml:"parallel_search"`
    Players   struct {
        X string `yaml:"x"`
        O string `yaml:"o"`
    } `yaml:"players"`
}

// Config is the resolved configuration.
type Config struct {
    Addr      string
    LogLevel  string
    DevLog    bool
    Heartbeat time.Duration
    Parallel  bool
    X         search.Kind
    O         search.Kind
}

// Default returns the configuration used when no file is given.
func Default() Config {
    return Config{
        Addr:      ":8080",
        LogLevel:  "info",
        Heartbeat: 15 * time.Second,
        X:         search.Human,
        O:         search.Optimal,
    }
}

// Load reads a YAML file over the defaults. Missing keys keep their default.
func Load(path string) (Config, error) {
    cfg := Default()
    data, err := os.ReadFile(path)
    if err != nil {
        return cfg, fmt.Errorf("read config: %w", err)
    }
    return Parse(data)
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (Config, error) {
    cfg := Default()
    var raw RawYamlConfig
    if err := yaml.Unmarshal(data, &raw); err != nil {
        return cfg, fmt.Errorf("parse config: %w", err)
    }
    if raw.Addr != "" {
        cfg.Addr = raw.Addr
    }
    if raw.LogLevel != "" {
        cfg.LogLevel = raw.LogLevel
    }
    cfg.DevLog = raw.DevLog
    cfg.Parallel = raw.Parallel
    if raw.Heartbeat != "" {
        d, err := time.ParseDuration(raw.Heartbeat)
        if err != nil {
            return cfg, fmt.Errorf("heartbeat: %w", err)
        }
        cfg.Heartbeat = d
    }
    if raw.Players.X != "" {
        k, err := search.ParseKind(raw.Players.X)
        if err != nil {
            return cfg, fmt.Errorf("players.x: %w", err)
        }
        cfg.X = k
    }
    if raw.Players.O != "" {
        k, err := search.ParseKind(raw.Players.O)
        if err != nil {
            return cfg, fmt.Errorf("players.o: %w", err)
        }
        cfg.O = k
    }
    return cfg, cfg.Validate()
}

// Validate checks values that cannot be caught while decoding.
func (c Config) Validate() error {
    if c.Addr == "" {
        return errors.New("addr must not be empty")
    }
    if c.Heartbeat <= 0 {
        return errors.New("heartbeat must be positive")
    }
    switch c.LogLevel {
    case "debug", "info", "warn", "error":
    default:
        return fmt.Errorf("unknown log level %q", c.LogLevel)
    }
    return nil
}
