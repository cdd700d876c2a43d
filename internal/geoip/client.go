package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Doer abstracts the HTTP transport so lookups can be faked in tests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Location is the approximate geography of a public IP.
// Zero value means "unknown" and is a valid, expected answer.
type Location struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

type Config struct {
	IPEndpoint  string
	GeoEndpoint string
	GeoFallback string
	Timeout     time.Duration
}

type Client struct {
	http   Doer
	cfg    Config
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// NewClientWithDoer is used by tests to inject a fake transport.
func NewClientWithDoer(cfg Config, doer Doer, logger *zap.Logger) *Client {
	return &Client{
		http:   doer,
		cfg:    cfg,
		logger: logger,
	}
}

// PublicIP resolves the caller's public IP via the configured endpoint.
// Returns "" when the lookup fails; никогда не блокирует дольше таймаута.
func (c *Client) PublicIP(ctx context.Context) string {
	var payload struct {
		IP string `json:"ip"`
	}

	if err := c.getJSON(ctx, c.cfg.IPEndpoint, &payload); err != nil {
		c.logger.Warn("public IP lookup failed", zap.Error(err))
		return ""
	}

	return payload.IP
}

// Locate resolves country and city for an IP, trying the primary endpoint
// and then the fallback. An unresolvable IP yields the zero Location.
func (c *Client) Locate(ctx context.Context, ip string) Location {
	if ip == "" {
		return Location{}
	}

	var primary struct {
		CountryName string `json:"country_name"`
		CountryCode string `json:"country_code"`
		City        string `json:"city"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s/json/", c.cfg.GeoEndpoint, ip), &primary); err == nil {
		country := primary.CountryName
		if country == "" {
			country = primary.CountryCode
		}
		if country != "" || primary.City != "" {
			return Location{Country: country, City: primary.City}
		}
	} else {
		c.logger.Warn("geo lookup failed, trying fallback",
			zap.Error(err),
			zap.String("ip", ip),
		)
	}

	var fallback struct {
		Country string `json:"country"`
		City    string `json:"city"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s", c.cfg.GeoFallback, ip), &fallback); err != nil {
		c.logger.Warn("fallback geo lookup failed",
			zap.Error(err),
			zap.String("ip", ip),
		)
		return Location{}
	}

	return Location{Country: fallback.Country, City: fallback.City}
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
