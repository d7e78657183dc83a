package services

import (
	"context"
	"time"
)

// RedisClient is the subset of pkg/cache used by the service layer.
type RedisClient interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

type cacheService struct {
	client RedisClient
}

func NewCacheService(client RedisClient) CacheService {
	return &cacheService{client: client}
}

func (s *cacheService) Get(ctx context.Context, key string, dest interface{}) error {
	return s.client.Get(ctx, key, dest)
}

func (s *cacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration)
}

func (s *cacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Delete(ctx, keys...)
}

func (s *cacheService) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, expiration)
}

func (s *cacheService) Exists(ctx context.Context, key string) (bool, error) {
	return s.client.Exists(ctx, key)
}
