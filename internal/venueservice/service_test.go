package venueservice

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/roundup-savings/internal/domain"
	"github.com/go-petr/roundup-savings/pkg/randompkg"
)

func testConfig(url string) Config {
	return Config{
		GraphQLURL:    url,
		PollInterval:  10 * time.Millisecond,
		Token:         randompkg.Address(),
		TokenDecimals: 6,
		AavePool:      randompkg.Address(),
		MorphoVault:   randompkg.Address(),
	}
}

func indexer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Contains(t, req.Query, "lastBestProtocolSelected")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestFetch(t *testing.T) {
	testCases := []struct {
		name         string
		status       int
		body         string
		wantPlatform domain.Venue
		wantFallback bool
	}{
		{
			name:         "Morpho",
			status:       http.StatusOK,
			body:         `{"data":{"lastBestProtocolSelected":[{"id":"1","protocol":"0","timestamp":"1","blockNumber":"2"}]}}`,
			wantPlatform: domain.VenueMorpho,
		},
		{
			name:         "Aave",
			status:       http.StatusOK,
			body:         `{"data":{"lastBestProtocolSelected":[{"id":"1","protocol":"1"}]}}`,
			wantPlatform: domain.VenueAave,
		},
		{
			name:         "NumericCode",
			status:       http.StatusOK,
			body:         `{"data":{"lastBestProtocolSelected":[{"id":"1","protocol":0}]}}`,
			wantPlatform: domain.VenueMorpho,
		},
		{
			name:         "UnknownCode",
			status:       http.StatusOK,
			body:         `{"data":{"lastBestProtocolSelected":[{"id":"1","protocol":"7"}]}}`,
			wantPlatform: domain.VenueAave,
			wantFallback: true,
		},
		{
			name:         "Empty",
			status:       http.StatusOK,
			body:         `{"data":{"lastBestProtocolSelected":[]}}`,
			wantPlatform: domain.VenueAave,
			wantFallback: true,
		},
		{
			name:         "GraphQLError",
			status:       http.StatusOK,
			body:         `{"errors":[{"message":"field not found"}]}`,
			wantPlatform: domain.VenueAave,
			wantFallback: true,
		},
		{
			name:         "ServerError",
			status:       http.StatusBadGateway,
			body:         `bad gateway`,
			wantPlatform: domain.VenueAave,
			wantFallback: true,
		},
		{
			name:         "ServerErrorWithErrors",
			status:       http.StatusInternalServerError,
			body:         `{"errors":[{"message":"indexer down"}]}`,
			wantPlatform: domain.VenueAave,
			wantFallback: true,
		},
		{
			name:         "Malformed",
			status:       http.StatusOK,
			body:         `{"data":`,
			wantPlatform: domain.VenueAave,
			wantFallback: true,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			srv := indexer(t, tc.status, tc.body)

			s, err := New(testConfig(srv.URL), srv.Client())
			require.NoError(t, err)

			got := s.Fetch(context.Background())
			require.Equal(t, tc.wantPlatform, got.Platform)
			require.Equal(t, tc.wantFallback, got.Fallback)
			require.WithinDuration(t, time.Now(), got.UpdatedAt, time.Second)
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s, err := New(testConfig(url), nil)
	require.NoError(t, err)

	got := s.Fetch(context.Background())
	require.Equal(t, domain.VenueAave, got.Platform)
	require.True(t, got.Fallback)
}

func TestNewInvalidAddress(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.AavePool = "0x123"

	_, err := New(cfg, nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRun(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := "1"
		if calls.Add(1) > 1 {
			code = "0"
		}

		_, _ = io.WriteString(w, `{"data":{"lastBestProtocolSelected":[{"id":"1","protocol":"`+code+`"}]}}`)
	}))
	defer srv.Close()

	s, err := New(testConfig(srv.URL), srv.Client())
	require.NoError(t, err)

	initial := s.Current()
	require.Equal(t, domain.VenueAave, initial.Platform)
	require.True(t, initial.Fallback)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error)

	go func() {
		done <- s.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return s.Current().Platform == domain.VenueMorpho
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.False(t, s.Current().Fallback)
	require.GreaterOrEqual(t, calls.Load(), int32(2))
}

func selector(signature string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(signature))[:4])
}

func word(b []byte) string {
	return strings.Repeat("0", 64-len(common.Bytes2Hex(b))) + common.Bytes2Hex(b)
}

func TestBuildTxs(t *testing.T) {
	cfg := testConfig("http://localhost")
	owner := randompkg.Address()

	s, err := New(cfg, nil)
	require.NoError(t, err)

	amount := decimal.NewFromInt(1)
	units := word([]byte{0x0f, 0x42, 0x40}) // 1_000_000

	testCases := []struct {
		name       string
		venue      domain.Venue
		wantTo     string
		wantPrefix string
		wantWords  []string
	}{
		{
			name:       "Aave",
			venue:      domain.VenueAave,
			wantTo:     common.HexToAddress(cfg.AavePool).Hex(),
			wantPrefix: "0x617ba037",
			wantWords: []string{
				word(common.HexToAddress(cfg.Token).Bytes()),
				units,
				word(common.HexToAddress(owner).Bytes()),
				word(nil),
			},
		},
		{
			name:       "Morpho",
			venue:      domain.VenueMorpho,
			wantTo:     common.HexToAddress(cfg.MorphoVault).Hex(),
			wantPrefix: selector("deposit(address,uint256,address)"),
			wantWords: []string{
				word(common.HexToAddress(cfg.Token).Bytes()),
				units,
				word(common.HexToAddress(owner).Bytes()),
			},
		},
		{
			name:       "CurrentPick",
			venue:      "",
			wantTo:     common.HexToAddress(cfg.AavePool).Hex(),
			wantPrefix: "0x617ba037",
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			txs, err := s.BuildTxs(tc.venue, amount, owner)
			require.NoError(t, err)
			require.Len(t, txs, 2)

			approve, call := txs[0], txs[1]

			require.Equal(t, common.HexToAddress(cfg.Token).Hex(), approve.To)
			require.Equal(t, "0x0", approve.Value)
			require.Equal(t, "0x095ea7b3"+word(common.HexToAddress(tc.wantTo).Bytes())+units, approve.Data)

			require.Equal(t, tc.wantTo, call.To)
			require.Equal(t, "0x0", call.Value)
			require.True(t, strings.HasPrefix(call.Data, tc.wantPrefix), call.Data)

			if tc.wantWords != nil {
				require.Equal(t, tc.wantPrefix+strings.Join(tc.wantWords, ""), call.Data)
			}
		})
	}
}

func TestBuildTxsInvalid(t *testing.T) {
	s, err := New(testConfig("http://localhost"), nil)
	require.NoError(t, err)

	owner := randompkg.Address()

	_, err = s.BuildTxs("compound", decimal.NewFromInt(1), owner)
	require.ErrorIs(t, err, domain.ErrInvalidVenue)

	_, err = s.BuildTxs(domain.VenueAave, decimal.Zero, owner)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.BuildTxs(domain.VenueMorpho, decimal.RequireFromString("0.0000001"), owner)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.BuildTxs(domain.VenueAave, decimal.NewFromInt(1), "0xnope")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
