// Package cache зеркалирует поток наблюдений и агрегированный ряд в Redis
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-redis/redis/v8"

	"stream-dashboard/internal/metrics"
	"stream-dashboard/internal/models"
)

const (
	// ObservationsKey список последних наблюдений, новые в начале
	ObservationsKey = "observations:latest"
	// SummaryKey последний примененный агрегированный ряд
	SummaryKey = "summary:latest"
	// FiltersKey текущая конфигурация фильтров
	FiltersKey = "filters:current"
	// CounterKeyPrefix префикс счетчиков
	CounterKeyPrefix = "counter:"
	// SummaryTTL время жизни агрегированного ряда
	SummaryTTL = 5 * time.Minute
)

// ErrNotFound ключ отсутствует в Redis
var ErrNotFound = errors.New("cache entry not found")

// CachedSummary агрегированный ряд с ID запроса, который его построил
type CachedSummary struct {
	RequestID uint64                `json:"requestId"`
	Data      []models.SummaryPoint `json:"data"`
	UpdatedAt int64                 `json:"updatedAt"`
}

// RedisCache хранит ограниченное зеркало буфера и последний ряд
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisCache создает новое подключение к Redis
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx := context.Background()

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		client: client,
		ctx:    ctx,
	}, nil
}

// PushObservation добавляет наблюдение в начало списка и обрезает его до capacity,
// поэтому зеркало никогда не хранит больше, чем буфер
func (r *RedisCache) PushObservation(obs models.Observation, capacity int) error {
	data, err := sonic.Marshal(obs)
	if err != nil {
		return fmt.Errorf("failed to marshal observation: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.LPush(r.ctx, ObservationsKey, data)
	pipe.LTrim(r.ctx, ObservationsKey, 0, int64(capacity)-1)
	pipe.Incr(r.ctx, CounterKeyPrefix+"observations")

	if _, err := pipe.Exec(r.ctx); err != nil {
		metrics.CacheMisses.Inc()
		return fmt.Errorf("failed to push observation: %w", err)
	}
	metrics.CacheHits.Inc()
	return nil
}

// ResetObservations заменяет зеркало набором seed (в хронологическом порядке)
func (r *RedisCache) ResetObservations(seed []models.Observation, capacity int) error {
	if len(seed) > capacity {
		seed = seed[len(seed)-capacity:]
	}
	values := make([]interface{}, 0, len(seed))
	for _, obs := range seed {
		data, err := sonic.Marshal(obs)
		if err != nil {
			return fmt.Errorf("failed to marshal observation: %w", err)
		}
		values = append(values, data)
	}

	_, err := r.client.TxPipelined(r.ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(r.ctx, ObservationsKey)
		if len(values) > 0 {
			pipe.LPush(r.ctx, ObservationsKey, values...)
		}
		return nil
	})
	if err != nil {
		metrics.CacheMisses.Inc()
		return fmt.Errorf("failed to reset observations: %w", err)
	}
	metrics.CacheHits.Inc()
	return nil
}

// LatestObservations возвращает до count последних наблюдений, новые первыми
func (r *RedisCache) LatestObservations(count int64) ([]models.Observation, error) {
	if count <= 0 {
		return []models.Observation{}, nil
	}
	data, err := r.client.LRange(r.ctx, ObservationsKey, 0, count-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get latest observations: %w", err)
	}

	out := make([]models.Observation, 0, len(data))
	for _, d := range data {
		var obs models.Observation
		if err := sonic.UnmarshalString(d, &obs); err != nil {
			continue
		}
		out = append(out, obs)
	}
	return out, nil
}

// ObservationCount длина зеркала
func (r *RedisCache) ObservationCount() (int64, error) {
	return r.client.LLen(r.ctx, ObservationsKey).Result()
}

// CacheSummary сохраняет примененный ряд с TTL
func (r *RedisCache) CacheSummary(requestID uint64, series []models.SummaryPoint) error {
	payload := CachedSummary{
		RequestID: requestID,
		Data:      series,
		UpdatedAt: time.Now().UnixMilli(),
	}
	if err := r.SetWithTTL(SummaryKey, payload, SummaryTTL); err != nil {
		metrics.CacheMisses.Inc()
		return fmt.Errorf("failed to cache summary: %w", err)
	}
	metrics.CacheHits.Inc()
	return nil
}

// GetSummary возвращает последний сохраненный ряд или ErrNotFound
func (r *RedisCache) GetSummary() (CachedSummary, error) {
	var out CachedSummary
	err := r.Get(SummaryKey, &out)
	return out, err
}

// SaveFilters сохраняет конфигурацию фильтров без TTL
func (r *RedisCache) SaveFilters(cfg models.FilterConfig) error {
	return r.SetWithTTL(FiltersKey, cfg, 0)
}

// LoadFilters читает сохраненную конфигурацию фильтров или ErrNotFound
func (r *RedisCache) LoadFilters() (models.FilterConfig, error) {
	var cfg models.FilterConfig
	err := r.Get(FiltersKey, &cfg)
	return cfg, err
}

// IncrementCounter увеличивает счетчик
func (r *RedisCache) IncrementCounter(name string) (int64, error) {
	return r.client.Incr(r.ctx, CounterKeyPrefix+name).Result()
}

// GetCounter возвращает значение счетчика
func (r *RedisCache) GetCounter(name string) (int64, error) {
	val, err := r.client.Get(r.ctx, CounterKeyPrefix+name).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// SetWithTTL устанавливает значение с TTL; 0 означает без срока
func (r *RedisCache) SetWithTTL(key string, value interface{}, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(r.ctx, key, data, ttl).Err()
}

// Get получает значение по ключу
func (r *RedisCache) Get(key string, dest interface{}) error {
	data, err := r.client.Get(r.ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return sonic.Unmarshal(data, dest)
}

// Ping проверяет соединение с Redis
func (r *RedisCache) Ping() error {
	return r.client.Ping(r.ctx).Err()
}

// Close закрывает соединение
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// FlushDB очищает базу (только для тестов)
func (r *RedisCache) FlushDB() error {
	return r.client.FlushDB(r.ctx).Err()
}
