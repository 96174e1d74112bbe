package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"certwallet/internal/wallet/domain/issuer"
	"certwallet/internal/wallet/parser"
)

const redisIssuerKeyPrefix = "certwallet:issuer:"

// RedisCache shares parsed issuer profiles between wallet instances. Profiles are
// stored as their self-contained JSON document and re-parsed on read, which needs
// no network because images are inline data URIs.
type RedisCache struct {
	client *redis.Client
	parser *parser.Parser
	ttl    time.Duration
}

// NewRedisCache constructs a Redis-backed cache. A zero ttl keeps entries until refreshed.
func NewRedisCache(client *redis.Client, p *parser.Parser, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		parser: p,
		ttl:    ttl,
	}
}

// Get loads a cached profile.
//
// Errors: ErrCacheMiss when absent; wraps Redis, JSON and parse errors.
func (c *RedisCache) Get(ctx context.Context, uri string) (*issuer.Profile, error) {
	data, err := c.client.Get(ctx, issuerKey(uri)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("find issuer cache: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode issuer cache: %w", err)
	}
	profile, err := c.parser.ParseIssuer(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("parse issuer cache: %w", err)
	}
	return profile, nil
}

// Put writes the profile document, replacing any existing entry.
func (c *RedisCache) Put(ctx context.Context, uri string, profile *issuer.Profile) error {
	if profile == nil {
		return errors.New("issuer profile is required")
	}
	payload, err := json.Marshal(parser.IssuerToDocument(profile))
	if err != nil {
		return fmt.Errorf("encode issuer cache: %w", err)
	}
	if err := c.client.Set(ctx, issuerKey(uri), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("save issuer cache: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, uri string) error {
	if err := c.client.Del(ctx, issuerKey(uri)).Err(); err != nil {
		return fmt.Errorf("delete issuer cache: %w", err)
	}
	return nil
}

// Purge removes every cached profile using SCAN so large caches do not block Redis.
func (c *RedisCache) Purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, redisIssuerKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == 100 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("purge issuer cache: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan issuer cache: %w", err)
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("purge issuer cache: %w", err)
		}
	}
	return nil
}

func issuerKey(uri string) string {
	return redisIssuerKeyPrefix + uri
}
