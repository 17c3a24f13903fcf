package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/pensio/consultant-bot/internal/config"
	"github.com/pensio/consultant-bot/internal/stub"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Set up zerolog to use pretty printing
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
	})
	log.Info().Msg("starting up the stub backend...")

	// Load the application configuration
	log.Info().Msg("loading configuration...")
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	if cfg.IsEnvProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Create and start the stub backend service
	service, err := stub.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create the stub backend service")
	}
	log.Info().Str("address", cfg.StubListenAddress).Msg("starting up the stub backend API...")
	errs := make(chan error, 1)
	go func() {
		if err := service.Startup(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	go func() {
		err := <-errs
		log.Fatal().Err(err).Msg("the stub backend raised an unexpected error")
	}()
	defer func() {
		log.Info().Msg("shutting down the stub backend...")
		service.Shutdown()
	}()

	log.Info().Msg("done!")
	defer log.Info().Msg("shutting down...")

	// Wait for the application to be terminated
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt)
	<-shutdown
}
