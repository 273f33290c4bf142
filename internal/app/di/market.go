// Package di provides dependency injection factories for creating application components.
package di

import (
	"log"

	"trading_backend/internal/platform/externalapi/kis"
	infrahttp "trading_backend/internal/platform/http"
	"trading_backend/internal/shared/ratelimiter"
)

// NewQuoteClient creates a fully configured KIS quotation client with a shared
// HTTP client and the process-wide request throttle.
func NewQuoteClient() *kis.Client {
	cfg, err := kis.LoadConfig()
	if err != nil {
		log.Fatalf("quote provider configuration: %v", err)
	}
	httpClient := infrahttp.NewHTTPClient(cfg.Timeout)
	limiter := ratelimiter.NewRateLimiter(cfg.MinRequestInterval)
	return kis.NewClient(cfg, httpClient, limiter)
}
