package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/angas/solarquote-go/config"
	"github.com/angas/solarquote-go/database"
	"github.com/angas/solarquote-go/logging"
	"github.com/angas/solarquote-go/metrics"
	"github.com/angas/solarquote-go/mqttapi"
	"github.com/angas/solarquote-go/quote"
	"github.com/angas/solarquote-go/task"
	"github.com/angas/solarquote-go/www"
)

var Version = "?.?.?"

type reload struct {
	cnfg *config.AppConfig
	err  error
}

func main() {
	defer func() {
		if err := recover(); err != nil {
			exitWithError(slog.Default(), fmt.Errorf("application panicked: %v", err))
		} else {
			slog.Default().Info("application is shutting down...")
		}
	}()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads := make(chan reload, 1)
	cnfg, err := config.LoadAndWatch(*configPath, func(c *config.AppConfig, err error) {
		select {
		case reloads <- reload{c, err}:
		case <-ctx.Done():
		}
	})
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cnfg.Logging.GetConsoleLevel(),
		TimeFormat: time.RFC3339,
	})
	slog.New(consoleHandler).Debug("solarquote is starting...", slog.String("version", Version))

	db, err := database.New(ctx, cnfg.Database.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to database: %v", err))
	}
	defer db.Close()

	logger := slog.New(logging.NewMultiHandler(
		consoleHandler,
		logging.NewSQLiteHandler(db, cnfg.Logging.GetDbLevel(), cnfg.Logging.GetDbAttrsFormat())))
	slog.SetDefault(logger)

	// Now we can use the logger to log database operations into the database itself
	db.SetLogger(logger.With("module", "database"))

	quoteConfig, err := cnfg.Quote.EngineConfig()
	if err != nil {
		panic(fmt.Sprintf("invalid quote configuration: %v", err))
	}

	engine, err := quote.NewEngine(quoteConfig, logger.With("module", "quote"))
	if err != nil {
		panic(fmt.Sprintf("failed to start quote engine: %v", err))
	}

	m, err := metrics.NewQuotes(nil)
	if err != nil {
		panic(fmt.Sprintf("failed to register metrics: %v", err))
	}
	engine.OnQuote = m.ObserveQuote

	server, err := www.NewServer(engine, db, m, cnfg.Api, Version)
	if err != nil {
		panic(fmt.Sprintf("failed to create server: %v", err))
	}
	engine.OnReload = server.NotifyReload

	if cnfg.Mqtt.Enabled() {
		api := mqttapi.New(cnfg.Mqtt, engine)
		if err := api.Connect(); err != nil {
			logger.Error("mqtt connection error, quotes over mqtt are disabled", slog.Any("error", err))
		} else {
			defer api.Disconnect()
		}
	} else {
		logger.Info("no mqtt host configured, skipping mqtt")
	}

	tasks := task.NewTasks(db, cnfg)
	if isDevMode() {
		logger.Info("dev mode, skipping task scheduling")
	} else {
		if err := tasks.Run(); err != nil {
			panic(fmt.Sprintf("failed to schedule tasks: %v", err))
		}
		defer tasks.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("main context done")
				return
			case sig := <-sigCh:
				logger.Info("received signal", slog.Any("signal", sig))
				cancel()
			case r := <-reloads:
				m.ObserveReload(applyReload(logger, engine, r))
			}
		}
	}()

	server.Run(ctx)
}

// applyReload hands the quote section of a changed config file to the engine. Only the
// quote section is reloaded, the rest needs a restart.
func applyReload(logger *slog.Logger, engine *quote.Engine, r reload) error {
	if r.err != nil {
		logger.Error("failed to reload config, keeping the current one", slog.Any("error", r.err))
		return r.err
	}
	qc, err := r.cnfg.Quote.EngineConfig()
	if err != nil {
		logger.Error("invalid quote configuration, keeping the current one", slog.Any("error", err))
		return err
	}
	return engine.Reload(qc)
}

func isDevMode() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "development")
}

func exitWithError(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("application shutting down with error", slog.Any("error", err))
	}
	time.Sleep(2 * time.Second)
	os.Exit(1)
}
