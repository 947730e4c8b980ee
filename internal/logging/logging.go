package logging

import (
    "fmt"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// New builds a zap logger at the given level. Development loggers write
// human readable console output; otherwise JSON as zap.NewProduction does.
func New(level string, development bool) (*zap.Logger, error) {
    var lvl zapcore.Level
    if err := lvl.UnmarshalText([]byte(level)); err != nil {
        return nil, fmt.Errorf("log level %q: %w", level, err)
    }
    cfg := zap.NewProductionConfig()
    if development {
        cfg = zap.NewDevelopmentConfig()
    }
    cfg.Level = zap.NewAtomicLevelAt(lvl)
    return cfg.Build()
}
