package config

import (
    "flag"
    "fmt"
    "os"

    "github.com/jaminalder/tic-tac-toe-solver/internal/search"
)

// getEnvOrDefault returns the environment value for key, or def if unset.
func getEnvOrDefault(key, def string) string {
    if v, ok := os.LookupEnv(key); ok {
        return v
    }
    return def
}

// FromFlags builds a Config from a config file (if -config is set) and then
// applies any flags given on the command line. Environment variables supply
// flag defaults.
func FromFlags(fs *flag.FlagSet, args []string) (Config, error) {
    var (
        path     = fs.String("config", os.Getenv("TTT_CONFIG"), "Path to a YAML config file")
        addr     = fs.String("addr", getEnvOrDefault("TTT_ADDR", ""), "Address for the web server")
        logLevel = fs.String("log-level", getEnvOrDefault("TTT_LOG_LEVEL", ""), "Log level: debug, info, warn, error")
        devLog   = fs.Bool("dev-log", false, "Human readable development logging")
        parallel = fs.Bool("parallel", false, "Score root moves concurrently in optimal search")
        x        = fs.String("x", "", "Default kind for X: human, random, win, block, optimal")
        o        = fs.String("o", "", "Default kind for O: human, random, win, block, optimal")
    )
    if err := fs.Parse(args); err != nil {
        return Config{}, err
    }

    cfg := Default()
    if *path != "" {
        var err error
        if cfg, err = Load(*path); err != nil {
            return cfg, err
        }
    }

    set := map[string]bool{}
    fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

    if *addr != "" {
        cfg.Addr = *addr
    }
    if *logLevel != "" {
        cfg.LogLevel = *logLevel
    }
    if set["dev-log"] {
        cfg.DevLog = *devLog
    }
    if set["parallel"] {
        cfg.Parallel = *parallel
    }
    if err := applyKind(&cfg.X, "x", *x); err != nil {
        return cfg, err
    }
    if err := applyKind(&cfg.O, "o", *o); err != nil {
        return cfg, err
    }
    return cfg, cfg.Validate()
}

func applyKind(dst *search.Kind, name, v string) error {
    if v == "" {
        return nil
    }
    k, err := search.ParseKind(v)
    if err != nil {
        return fmt.Errorf("-%s: %w", name, err)
    }
    *dst = k
    return nil
}
