// Package main runs the round-up savings API and its transfer workers.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-petr/roundup-savings/cmd/httpserver"
	"github.com/go-petr/roundup-savings/internal/ledgerrepo"
	"github.com/go-petr/roundup-savings/internal/middleware"
	"github.com/go-petr/roundup-savings/pkg/configpkg"
)

const shutdownTimeout = 30 * time.Second

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logger.WithContext(ctx)

	var db *sql.DB

	if config.StorageDriver != configpkg.StorageMemory {
		db, err = ledgerrepo.Open(ctx, ledgerrepo.Dialect(config.StorageDriver), config.DBSource)
		if err != nil {
			logger.Fatal().Err(err).Str("driver", config.StorageDriver).Msg("cannot connect to database")
		}

		defer db.Close()
	}

	server, err := httpserver.New(ctx, db, logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}
	defer server.Close()

	srv := &http.Server{
		Addr:              config.ServerAddress,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.RunWorkers(gctx)
	})

	g.Go(func() error {
		logger.Info().
			Str("address", config.ServerAddress).
			Str("storage", config.StorageDriver).
			Str("notifier", config.Notifier).
			Str("chain", config.ChainMode).
			Msg("ROUND-UP SAVINGS SERVER HAS STARTED")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return
	}

	logger.Info().Msg("server stopped")
}
