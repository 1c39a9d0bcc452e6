package dexscreener

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/dexsentry/dexsentry/internal/config"
	"github.com/dexsentry/dexsentry/internal/health"
	"github.com/dexsentry/dexsentry/internal/market"
)

// Client fetches pair snapshots from the DexScreener REST API. Requests go
// through a circuit breaker so a flapping upstream does not hammer the API,
// and every call is recorded against the health sampler.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	sampler *health.Sampler

	throttle    sync.Mutex
	minInterval time.Duration
	lastCall    time.Time
}

// New builds a client from the ingest configuration. sampler may be nil.
func New(cfg config.IngestConfig, sampler *health.Sampler) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Accept", "application/json")

	settings := gobreaker.Settings{
		Name:    "dexscreener",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
		},
	}

	var minInterval time.Duration
	if cfg.RateLimitRPS > 0 {
		minInterval = time.Duration(float64(time.Second) / cfg.RateLimitRPS)
	}

	return &Client{
		http:        httpClient,
		breaker:     gobreaker.NewCircuitBreaker(settings),
		sampler:     sampler,
		minInterval: minInterval,
	}
}

// FetchSnapshots returns recent pairs on the given chain, newest first as
// the API reports them, capped at limit.
func (c *Client) FetchSnapshots(ctx context.Context, chain string, limit int) ([]market.PairSnapshot, error) {
	var payload market.PairsResponse
	path := "/dex/search?q=" + chain
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, err
	}

	snapshots := make([]market.PairSnapshot, 0, limit)
	for _, dto := range payload.Pairs {
		if !strings.EqualFold(dto.ChainID, chain) {
			continue
		}
		snapshots = append(snapshots, dto.Snapshot())
		if len(snapshots) >= limit {
			break
		}
	}
	return snapshots, nil
}

// FetchSnapshot returns the most liquid pair for a token address, or nil
// when the token is no longer listed.
func (c *Client) FetchSnapshot(ctx context.Context, address string) (*market.PairSnapshot, error) {
	var payload market.PairsResponse
	if err := c.get(ctx, "/dex/tokens/"+address, &payload); err != nil {
		return nil, err
	}
	if len(payload.Pairs) == 0 {
		return nil, nil
	}

	best := payload.Pairs[0]
	for _, dto := range payload.Pairs[1:] {
		if dto.Liquidity.USD > best.Liquidity.USD {
			best = dto
		}
	}
	snap := best.Snapshot()
	return &snap, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	c.waitTurn()

	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(out).
			Get(path)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("dexscreener: %s returned %s", path, resp.Status())
		}
		return nil, nil
	})

	if c.sampler != nil {
		c.sampler.RecordAPICall(err == nil, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("dexscreener request failed: %w", err)
	}
	return nil
}

// waitTurn enforces the configured request rate across goroutines.
func (c *Client) waitTurn() {
	if c.minInterval <= 0 {
		return
	}
	c.throttle.Lock()
	defer c.throttle.Unlock()
	if wait := c.minInterval - time.Since(c.lastCall); wait > 0 {
		time.Sleep(wait)
	}
	c.lastCall = time.Now()
}
