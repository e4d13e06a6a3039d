// Package httpserver manages server creation and api routing.
package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/go-petr/roundup-savings/internal/amqpqueue"
	"github.com/go-petr/roundup-savings/internal/chain"
	"github.com/go-petr/roundup-savings/internal/expensedelivery"
	"github.com/go-petr/roundup-savings/internal/ledgerrepo"
	"github.com/go-petr/roundup-savings/internal/ledgerservice"
	"github.com/go-petr/roundup-savings/internal/middleware"
	"github.com/go-petr/roundup-savings/internal/operatordelivery"
	"github.com/go-petr/roundup-savings/internal/operatorservice"
	"github.com/go-petr/roundup-savings/internal/transferdelivery"
	"github.com/go-petr/roundup-savings/internal/transferqueue"
	"github.com/go-petr/roundup-savings/internal/transferservice"
	"github.com/go-petr/roundup-savings/internal/venuedelivery"
	"github.com/go-petr/roundup-savings/internal/venueservice"
	"github.com/go-petr/roundup-savings/pkg/breakerpkg"
	"github.com/go-petr/roundup-savings/pkg/configpkg"
	"github.com/go-petr/roundup-savings/pkg/tokenpkg"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 64 << 10

// ErrUnsupportedNotifier indicates an unknown NOTIFIER setting.
var ErrUnsupportedNotifier = errors.New("unsupported notifier")

// ErrUnsupportedChainMode indicates an unknown CHAIN_MODE setting.
var ErrUnsupportedChainMode = errors.New("unsupported chain mode")

// consumer delivers savings events to the transfer handler.
type consumer interface {
	Run(ctx context.Context, handle transferqueue.Handler) error
}

// transferer is a transfer collaborator that may hold a connection.
type transferer interface {
	transferservice.Transferer
	Close()
}

// Server holds db connection, handlers router, configuration and the
// background workers that move savings on chain.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config

	Ledger    *ledgerservice.Service
	Transfers *transferservice.Service
	Venues    *venueservice.Service

	logger   zerolog.Logger
	consumer consumer
	bus      *amqpqueue.Client
	chain    transferer
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
//
// db is nil when the ledger is kept in memory only. The persisted ledger is
// replayed before New returns.
func New(ctx context.Context, db *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	ctx = logger.WithContext(ctx)

	decimal.MarshalJSONWithoutQuotes = true
	binding.EnableDecoderUseNumber = true

	server := &Server{
		DB:     db,
		Config: config,
		logger: logger,
	}

	var notifier ledgerservice.Notifier

	switch config.Notifier {
	case configpkg.NotifierQueue:
		queue := transferqueue.New(config.TransferQueueSize, config.TransferWorkers)
		notifier, server.consumer = queue, queue
	case configpkg.NotifierAMQP:
		bus, err := amqpqueue.Dial(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("cannot connect to message bus: %w", err)
		}

		server.bus = bus
		notifier, server.consumer = bus, bus
	case configpkg.NotifierNone:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNotifier, config.Notifier)
	}

	var repo ledgerservice.Repo
	if db != nil {
		repo = ledgerrepo.NewRepoSQL(db, ledgerrepo.Dialect(config.StorageDriver))
	}

	server.Ledger = ledgerservice.New(repo, notifier)
	if err := server.Ledger.Load(ctx); err != nil {
		server.Close()
		return nil, fmt.Errorf("cannot load ledger: %w", err)
	}

	collaborator, err := newTransferer(ctx, config)
	if err != nil {
		server.Close()
		return nil, err
	}

	server.chain = collaborator

	breaker := breakerpkg.New("transfer", breakerpkg.Config{
		MaxFailures:  config.BreakerMaxFailures,
		ResetTimeout: config.BreakerResetTimeout,
	})
	server.Transfers = transferservice.New(collaborator, server.Ledger, breaker, config.TransferTimeout)

	server.Venues, err = venueservice.New(venueservice.Config{
		GraphQLURL:    config.VenueGraphQLURL,
		PollInterval:  config.VenuePollInterval,
		Token:         config.TokenContract,
		TokenDecimals: config.TokenDecimals,
		AavePool:      config.VenueAavePool,
		MorphoVault:   config.VenueMorphoVault,
	}, nil)
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("cannot create venue service: %w", err)
	}

	var tokenMaker tokenpkg.Maker
	if config.TokenSymmetricKey != "" {
		tokenMaker, err = tokenpkg.New(config.TokenMaker, config.TokenSymmetricKey)
		if err != nil {
			server.Close()
			return nil, fmt.Errorf("cannot create token maker: %w", err)
		}
	}

	operatorService := operatorservice.New(config.OperatorPasswordHash, tokenMaker, config.AccessTokenDuration)

	expenseHandler := expensedelivery.NewHandler(server.Ledger)
	transferHandler := transferdelivery.NewHandler(server.Transfers)
	operatorHandler := operatordelivery.NewHandler(operatorService)
	venueHandler := venuedelivery.NewHandler(server.Venues)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		err := v.RegisterValidation("evmaddress", venuedelivery.ValidAddress)
		if err != nil {
			server.Close()
			return nil, errors.New("cannot register evmaddress validator")
		}
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())
	engine.Use(middleware.LimitBody(maxBodyBytes))

	api := engine.Group("/api")

	api.POST("/expenses", expenseHandler.Create)
	api.GET("/expenses", expenseHandler.List)
	api.GET("/expenses/view", expenseHandler.View)

	api.GET("/venue", venueHandler.Get)
	api.POST("/venue/txs", venueHandler.BuildTxs)

	api.POST("/operator/login", operatorHandler.Login)

	operatorRoutes := api.Group("/")
	if config.OperatorAuthEnabled() {
		operatorRoutes.Use(middleware.AuthMiddleware(tokenMaker))
	} else {
		logger.Warn().Msg("operator credentials are not configured, operator routes are open")
	}

	operatorRoutes.GET("/blockchain-status", transferHandler.Status)
	operatorRoutes.POST("/transfers/:expense_id/retry", transferHandler.Retry)

	server.Engine = engine

	return server, nil
}

func newTransferer(ctx context.Context, config configpkg.Config) (transferer, error) {
	switch config.ChainMode {
	case configpkg.ChainSimulated:
		balance, err := decimal.NewFromString(config.SimulatedBalance)
		if err != nil {
			return nil, fmt.Errorf("invalid simulated balance %q: %w", config.SimulatedBalance, err)
		}

		return chain.NewSimulator(balance), nil
	case configpkg.ChainEVM:
		evm, err := chain.NewEVM(ctx, chain.EVMConfig{
			RPCURL:      config.ChainRPCURL,
			ChainID:     config.ChainID,
			PrivateKey:  config.ChainPrivateKey,
			Token:       config.TokenContract,
			Destination: config.DestinationAddress,
			Decimals:    config.TokenDecimals,
		})
		if err != nil {
			return nil, fmt.Errorf("cannot connect to chain: %w", err)
		}

		return evm, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedChainMode, config.ChainMode)
}

// RunWorkers runs the transfer consumer and the venue poller until ctx is done.
func (s *Server) RunWorkers(ctx context.Context) error {
	ctx = s.logger.WithContext(ctx)

	g, ctx := errgroup.WithContext(ctx)

	if s.consumer != nil {
		g.Go(func() error {
			return s.consumer.Run(ctx, s.Transfers.Handle)
		})
	}

	g.Go(func() error {
		return s.Venues.Run(ctx)
	})

	return g.Wait()
}

// Close releases the message bus and chain connections.
//
// The database is owned by the caller.
func (s *Server) Close() {
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("cannot close message bus")
		}
	}

	if s.chain != nil {
		s.chain.Close()
	}
}
