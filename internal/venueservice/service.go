// Package venueservice picks the lending venue savings go to and builds
// unsigned transactions that supply them there.
package venueservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/machinebox/graphql"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/roundup-savings/internal/domain"
)

// recommendationQuery asks the indexer for the latest venue pick.
const recommendationQuery = `query { lastBestProtocolSelected(distinct_on: id) { id, timestamp, protocol, blockNumber } }`

// Indexer protocol codes.
const (
	protocolMorpho = "0"
	protocolAave   = "1"
)

var errNoSelection = errors.New("indexer returned no selection")

// Config holds the venue endpoints and contract addresses.
type Config struct {
	GraphQLURL    string
	PollInterval  time.Duration
	Token         string
	TokenDecimals int32
	AavePool      string
	MorphoVault   string
}

// Service polls the indexer for the recommended venue and keeps the latest pick.
type Service struct {
	cfg     Config
	client  *graphql.Client
	builder *Builder
	now     func() time.Time

	mu      sync.RWMutex
	current domain.Recommendation
}

// New validates the configured addresses and returns venue service.
func New(cfg Config, client *http.Client) (*Service, error) {
	for name, addr := range map[string]string{
		"token":        cfg.Token,
		"aave pool":    cfg.AavePool,
		"morpho vault": cfg.MorphoVault,
	} {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("%w: %s %q", domain.ErrInvalidInput, name, addr)
		}
	}

	builder, err := NewBuilder(cfg.Token, cfg.TokenDecimals)
	if err != nil {
		return nil, err
	}

	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Service{
		cfg:     cfg,
		client:  graphql.NewClient(cfg.GraphQLURL, graphql.WithHTTPClient(client)),
		builder: builder,
		now:     time.Now,
		current: domain.Recommendation{Platform: domain.VenueAave, Fallback: true},
	}, nil
}

type selectionData struct {
	LastBestProtocolSelected []struct {
		ID          string          `json:"id"`
		Protocol    json.RawMessage `json:"protocol"`
		Timestamp   json.RawMessage `json:"timestamp"`
		BlockNumber json.RawMessage `json:"blockNumber"`
	} `json:"lastBestProtocolSelected"`
}

// Fetch queries the indexer once. Any failure or unknown code falls back to Aave.
func (s *Service) Fetch(ctx context.Context) domain.Recommendation {
	l := zerolog.Ctx(ctx)

	rec := domain.Recommendation{Platform: domain.VenueAave, Fallback: true, UpdatedAt: s.now().UTC()}

	protocol, err := s.query(ctx)
	if err != nil {
		l.Warn().Err(err).Msg("fetch venue recommendation")
		return rec
	}

	switch protocol {
	case protocolMorpho:
		rec.Platform, rec.Fallback = domain.VenueMorpho, false
	case protocolAave:
		rec.Platform, rec.Fallback = domain.VenueAave, false
	default:
		l.Warn().Str("protocol", protocol).Msg("unknown venue protocol")
	}

	return rec
}

func (s *Service) query(ctx context.Context) (string, error) {
	var out selectionData

	if err := s.client.Run(ctx, graphql.NewRequest(recommendationQuery), &out); err != nil {
		return "", fmt.Errorf("query indexer: %w", err)
	}

	if len(out.LastBestProtocolSelected) == 0 {
		return "", errNoSelection
	}

	return protocolCode(out.LastBestProtocolSelected[0].Protocol), nil
}

// protocolCode accepts the code both as a JSON string and as a number.
func protocolCode(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	return string(raw)
}

// Refresh fetches the recommendation and keeps it as the current pick.
func (s *Service) Refresh(ctx context.Context) domain.Recommendation {
	rec := s.Fetch(ctx)

	s.mu.Lock()
	prev := s.current
	s.current = rec
	s.mu.Unlock()

	if prev.Platform != rec.Platform {
		zerolog.Ctx(ctx).Info().
			Str("from", string(prev.Platform)).
			Str("to", string(rec.Platform)).
			Bool("fallback", rec.Fallback).
			Msg("venue changed")
	}

	return rec
}

// Current returns the latest pick.
func (s *Service) Current() domain.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current
}

// Run refreshes the recommendation every poll interval until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	l := zerolog.Ctx(ctx)
	l.Info().Str("url", s.cfg.GraphQLURL).Dur("interval", s.cfg.PollInterval).Msg("venue poller started")

	s.Refresh(ctx)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("venue poller stopped")
			return nil
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// BuildTxs returns the unsigned approve and supply or deposit transactions
// for the venue. An empty venue means the current pick.
func (s *Service) BuildTxs(venue domain.Venue, amount decimal.Decimal, onBehalfOf string) ([]domain.UnsignedTx, error) {
	if venue == "" {
		venue = s.Current().Platform
	}

	switch venue {
	case domain.VenueAave:
		return s.builder.AaveSupply(s.cfg.AavePool, amount, onBehalfOf)
	case domain.VenueMorpho:
		return s.builder.MorphoDeposit(s.cfg.MorphoVault, amount, onBehalfOf)
	}

	return nil, fmt.Errorf("%w: %q", domain.ErrInvalidVenue, venue)
}
