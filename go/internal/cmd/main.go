package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/cdlfantasy/league/go/internal/draft/gateway"
	"github.com/cdlfantasy/league/go/internal/draft/outbox"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if os.Getenv("LOG_FORMAT") != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func run(ctx context.Context, cfg *Config) error {
	clock := clockwork.NewRealClock()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()

	// Publisher: JetStream when enabled, otherwise straight to the gateway.
	var (
		js          jetstream.JetStream
		jsPublisher *outbox.JetStreamPublisher
	)
	if cfg.NATSEnabled {
		jsCfg := outbox.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATSURL
		var nc *nats.Conn
		nc, js, err = outbox.Connect(jsCfg)
		if err != nil {
			return err
		}
		defer func() { _ = nc.Drain() }()

		jsPublisher, err = outbox.NewJetStreamPublisher(ctx, js, jsCfg)
		if err != nil {
			return err
		}
	}
	services := setupServices(cfg, st, func(cm *gateway.ConnectionManager) outbox.EventPublisher {
		if jsPublisher != nil {
			return jsPublisher
		}
		return gateway.NewLocalPublisher(cm)
	}, clock)

	// Any component failing takes the whole process down.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	goRun := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("component", name).Msg("component stopped with error")
				cancel()
			}
		}()
	}

	goRun("gateway", func() error {
		services.Gateway.Start(ctx)
		return nil
	})
	if js != nil {
		consumer, err := gateway.NewEventConsumer(ctx, services.Connections, js, gateway.DefaultJetStreamConsumerConfig())
		if err != nil {
			return err
		}
		goRun("event-consumer", func() error { return consumer.Start(ctx) })
	}

	if err := services.Relay.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := services.Relay.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop outbox relay")
		}
	}()
	if st.dsn != "" {
		listener, err := outbox.NewListener(services.Relay, outbox.DefaultListenerConfig(st.dsn))
		if err != nil {
			return err
		}
		goRun("outbox-listener", func() error { return listener.Run(ctx) })
	}

	if err := services.Orchestrator.Recover(ctx); err != nil {
		log.Error().Err(err).Msg("some turn timers were not recovered")
	}
	goRun("orchestrator", func() error { return services.Orchestrator.Run(ctx) })

	server := setupServer(cfg, services)
	goRun("http", func() error {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down http server")
	}
	wg.Wait()
	return nil
}
