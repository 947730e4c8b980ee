package main

import (
    "context"
    "errors"
    "flag"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "strings"
    "syscall"
    "time"

    "github.com/jaminalder/tic-tac-toe-solver/internal/app"
    "github.com/jaminalder/tic-tac-toe-solver/internal/cli"
    "github.com/jaminalder/tic-tac-toe-solver/internal/config"
    "github.com/jaminalder/tic-tac-toe-solver/internal/logging"
    "github.com/jaminalder/tic-tac-toe-solver/internal/search"
    "github.com/jaminalder/tic-tac-toe-solver/internal/web"
    "go.uber.org/zap"
)

const usage = `usage: tictactoe [play|serve] [flags]

  play   play in the terminal
  serve  run the web server (default)
`

func main() {
    if err := run(os.Args[1:]); err != nil {
        fmt.Fprintln(os.Stderr, err)
        os.Exit(1)
    }
}

func run(args []string) error {
    cmd := "serve"
    if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
        cmd, args = args[0], args[1:]
    }
    if cmd != "play" && cmd != "serve" {
        fmt.Fprint(os.Stderr, usage)
        return fmt.Errorf("unknown command %q", cmd)
    }

    fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
    cfg, err := config.FromFlags(fs, args)
    if err != nil {
        return err
    }
    log, err := logging.New(cfg.LogLevel, cfg.DevLog)
    if err != nil {
        return err
    }
    defer log.Sync()

    engine := search.NewEngine(
        search.WithLogger(log.Named("search")),
        search.WithParallel(cfg.Parallel),
    )

    if cmd == "play" {
        return cli.New(os.Stdin, os.Stdout,
            cli.WithEngine(engine),
            cli.WithLogger(log.Named("cli")),
        ).Run()
    }
    return serve(cfg, log, engine)
}

func serve(cfg config.Config, log *zap.Logger, engine *search.Engine) error {
    svc := app.NewService(app.WithEngine(engine), app.WithLogger(log.Named("app")))
    srv := &http.Server{
        Addr: cfg.Addr,
        Handler: web.NewServer(svc,
            web.WithLogger(log.Named("http")),
            web.WithHeartbeat(cfg.Heartbeat),
            web.WithDefaultKinds(cfg.X, cfg.O),
        ),
        ReadHeaderTimeout: 10 * time.Second,
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    errc := make(chan error, 1)
    go func() {
        log.Info("starting server", zap.String("addr", cfg.Addr), zap.Bool("parallel_search", cfg.Parallel))
        errc <- srv.ListenAndServe()
    }()

    select {
    case err := <-errc:
        if errors.Is(err, http.ErrServerClosed) {
            return nil
        }
        return err
    case <-ctx.Done():
    }

    log.Info("shutting down")
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := srv.Shutdown(shutdownCtx); err != nil {
        return fmt.Errorf("shutdown: %w", err)
    }
    log.Info("server stopped", zap.Int("cached_states", engine.CacheSize()))
    return nil
}
