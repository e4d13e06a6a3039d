// Package integrationtest provides db helpers used in integration tests.
package integrationtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/roundup-savings/cmd/httpserver"
	"github.com/go-petr/roundup-savings/internal/ledgerrepo"
	"github.com/go-petr/roundup-savings/internal/middleware"
	"github.com/go-petr/roundup-savings/pkg/configpkg"
	"github.com/go-petr/roundup-savings/pkg/dbpkg"
)

// SetupServer returns test server backed by postgres that cleans up database after each integration test.
func SetupServer(t *testing.T) *httpserver.Server {
	t.Helper()

	config, err := configpkg.Load("../../configs")
	if err != nil {
		t.Fatalf(`configpkg.Load("../../configs") returned error: %v`, err)
	}

	config.StorageDriver = configpkg.StoragePostgres
	config.Notifier = configpkg.NotifierQueue
	config.ChainMode = configpkg.ChainSimulated

	zerolog.SetGlobalLevel(zerolog.FatalLevel)

	logger := middleware.CreateLogger(config)

	if err := ledgerrepo.Migrate(ledgerrepo.DialectPostgres, config.DBSource); err != nil {
		t.Fatalf("ledgerrepo.Migrate() returned error: %v", err)
	}

	db := SetupDB(t, config.DBSource)

	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server, err := httpserver.New(ctx, db, logger, config)
	if err != nil {
		t.Fatalf(`httpserver.New(ctx, db, logger, config) returned error: %v`, err)
	}

	go func() {
		_ = server.RunWorkers(ctx)
	}()

	return server
}

// Flush flushes all db tables without droping.
func Flush(t *testing.T, db *sql.DB) {
	t.Helper()

	if _, err := db.Exec(`TRUNCATE TABLE transfer_records, ledger_entries CASCADE`); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}
}

// SetupDB sets up connection with postgres for testing and then cleans it.
func SetupDB(t *testing.T, source string) *sql.DB {
	t.Helper()

	db, err := dbpkg.Setup(context.Background(), string(ledgerrepo.DialectPostgres), source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	t.Cleanup(func() {
		Flush(t, db)

		if err := db.Close(); err != nil {
			t.Fatalf("db cleanup failed. err: %v", err)
		}
	})

	return db
}
