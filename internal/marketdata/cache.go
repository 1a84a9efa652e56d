package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedProvider wraps a Provider with a Redis read-through cache.
// Cache failures degrade to direct provider calls, never to errors.
type CachedProvider struct {
	inner     Provider
	rdb       *redis.Client
	quoteTTL  time.Duration
	candleTTL time.Duration
	log       zerolog.Logger
}

// NewCachedProvider wraps a provider with Redis caching
func NewCachedProvider(inner Provider, rdb *redis.Client, quoteTTL, candleTTL time.Duration, log zerolog.Logger) *CachedProvider {
	if quoteTTL <= 0 {
		quoteTTL = 30 * time.Second
	}
	if candleTTL <= 0 {
		candleTTL = 5 * time.Minute
	}
	return &CachedProvider{
		inner:     inner,
		rdb:       rdb,
		quoteTTL:  quoteTTL,
		candleTTL: candleTTL,
		log:       log.With().Str("component", "marketdata_cache").Logger(),
	}
}

func (c *CachedProvider) GetCandles(ctx context.Context, ticker string, bars int) ([]Candle, error) {
	key := fmt.Sprintf("candles:%s:%d", ticker, bars)

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var candles []Candle
		if err := json.Unmarshal(data, &candles); err == nil {
			return candles, nil
		}
		// Corrupt cache entry; fall through to the provider
		c.rdb.Del(ctx, key)
	}

	candles, err := c.inner.GetCandles(ctx, ticker, bars)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(candles); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.candleTTL).Err(); err != nil {
			c.log.Debug().Err(err).Str("ticker", ticker).Msg("candle cache write failed")
		}
	}

	return candles, nil
}

func (c *CachedProvider) GetQuote(ctx context.Context, ticker string) (*Quote, error) {
	key := "quote:" + ticker

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var q Quote
		if err := json.Unmarshal(data, &q); err == nil {
			return &q, nil
		}
		c.rdb.Del(ctx, key)
	}

	q, err := c.inner.GetQuote(ctx, ticker)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(q); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.quoteTTL).Err(); err != nil {
			c.log.Debug().Err(err).Str("ticker", ticker).Msg("quote cache write failed")
		}
	}

	return q, nil
}
