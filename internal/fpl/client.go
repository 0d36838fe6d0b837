// ABOUTME: Rate-limited HTTP client for the public Fantasy Premier League API
// ABOUTME: Successful responses are cached by path for a configurable TTL

package fpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrUpstream indicates the FPL API answered with a non-success status.
var ErrUpstream = errors.New("fpl api error")

const (
	DefaultBaseURL           = "https://fantasy.premierleague.com/api"
	DefaultRequestsPerSecond = 2.0
	DefaultBurst             = 4
	DefaultCacheTTL          = 5 * time.Minute
	defaultCacheSize         = 256
	maxBodyBytes             = 16 << 20
	userAgent                = "fpl-assistant/1.0"
)

// ClientConfig configures a Client. Zero values select defaults.
type ClientConfig struct {
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
	CacheTTL          time.Duration
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Client fetches FPL data.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cache   *Cache
	logger  *slog.Logger
}

// NewClient creates a Client. Call Close to stop its cache sweeper.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cache:   NewCache(cfg.CacheTTL, defaultCacheSize),
		logger:  cfg.Logger.With("component", "fpl"),
	}
}

// Close releases the client's cache.
func (c *Client) Close() {
	c.cache.Close()
}

// Bootstrap fetches players, teams and gameweeks.
func (c *Client) Bootstrap(ctx context.Context) (*Bootstrap, error) {
	var b Bootstrap
	if err := c.getJSON(ctx, "/bootstrap-static/", &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Fixtures fetches every fixture of the season.
func (c *Client) Fixtures(ctx context.Context) ([]Fixture, error) {
	var f []Fixture
	if err := c.getJSON(ctx, "/fixtures/", &f); err != nil {
		return nil, err
	}
	return f, nil
}

// Entry fetches a manager's profile.
func (c *Client) Entry(ctx context.Context, managerID int) (*Entry, error) {
	var e Entry
	if err := c.getJSON(ctx, fmt.Sprintf("/entry/%d/", managerID), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ManagerPicks fetches a manager's squad for a gameweek.
func (c *Client) ManagerPicks(ctx context.Context, managerID, gameweek int) (*Picks, error) {
	var p Picks
	if err := c.getJSON(ctx, fmt.Sprintf("/entry/%d/event/%d/picks/", managerID, gameweek), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ManagerHistory fetches a manager's season history and chip usage.
func (c *Client) ManagerHistory(ctx context.Context, managerID int) (*ManagerHistory, error) {
	var h ManagerHistory
	if err := c.getJSON(ctx, fmt.Sprintf("/entry/%d/history/", managerID), &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// LeagueStandings fetches the first page of a classic league.
func (c *Client) LeagueStandings(ctx context.Context, leagueID int) (*LeagueStandings, error) {
	var l LeagueStandings
	if err := c.getJSON(ctx, fmt.Sprintf("/leagues-classic/%d/standings/", leagueID), &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if body, ok := c.cache.Get(path); ok {
		c.logger.Debug("cache hit", "path", path)
		return body, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	c.logger.Debug("fetched",
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUpstream, path, resp.StatusCode)
	}

	c.cache.Set(path, body)
	return body, nil
}
