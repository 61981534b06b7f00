package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// CatalogResponse is the cosmetic lookup envelope.
type CatalogResponse struct {
	Status int          `json:"status"`
	Data   *CatalogItem `json:"data"`
}

// CatalogItem is the subset of a cosmetic definition the enricher uses.
type CatalogItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rarity struct {
		DisplayValue string `json:"displayValue"`
	} `json:"rarity"`
	Type struct {
		DisplayValue string `json:"displayValue"`
	} `json:"type"`
	Images struct {
		Icon      string `json:"icon"`
		SmallIcon string `json:"smallIcon"`
	} `json:"images"`
}

// CatalogClient looks up cosmetic definitions by id.
type CatalogClient struct {
	client
	baseURL     string
	callTimeout time.Duration
	limiter     *rate.Limiter
}

// NewCatalogClient creates a catalog client. Each lookup is bounded by timeout.
// A positive ratePerSecond paces outgoing lookups.
func NewCatalogClient(baseURL string, timeout time.Duration, ratePerSecond float64, log *slog.Logger) *CatalogClient {
	c := &CatalogClient{
		client:      newClient(timeout, log),
		baseURL:     trimBase(baseURL),
		callTimeout: timeout,
	}
	if ratePerSecond > 0 {
		burst := int(ratePerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
	return c
}

// Lookup fetches one cosmetic definition. A response without data is an error.
func (c *CatalogClient) Lookup(ctx context.Context, id string) (*CatalogItem, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("catalog rate limit: %w", err)
		}
	}

	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	var resp CatalogResponse
	err := c.do(ctx, request{
		method: http.MethodGet,
		url:    fmt.Sprintf("%s/v2/cosmetics/br/%s", c.baseURL, url.PathEscape(id)),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup %s: %w", id, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("catalog lookup %s: empty response", id)
	}
	return resp.Data, nil
}
