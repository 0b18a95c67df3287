package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"skillforge_backend/internal/model"

	"github.com/go-redis/redis/v8"
)

const AlertChannel = "integrity:alerts"

// VerdictCache is a read-through cache in front of the verdict table.
type VerdictCache interface {
	// Get returns nil without error on a miss.
	Get(ctx context.Context, sessionID string) (*model.IntegrityVerdict, error)
	Set(ctx context.Context, v *model.IntegrityVerdict) error
}

// IntegrityAlert is published when a session's trust score drops.
type IntegrityAlert struct {
	SessionID  string    `json:"sessionId"`
	UserID     string    `json:"userId"`
	SkillName  string    `json:"skillName"`
	Previous   float64   `json:"previousTrust"`
	TrustScore float64   `json:"trustScore"`
	NewRules   []string  `json:"newRules"`
	At         time.Time `json:"at"`
}

type AlertPublisher interface {
	Publish(ctx context.Context, alert IntegrityAlert) error
}

func NewVerdictCache(rdb *redis.Client, ttl time.Duration) VerdictCache {
	if rdb == nil {
		return noopVerdictCache{}
	}
	return &RedisVerdictCache{Client: rdb, TTL: ttl}
}

func NewAlertPublisher(rdb *redis.Client) AlertPublisher {
	if rdb == nil {
		return noopAlertPublisher{}
	}
	return &RedisAlertPublisher{Client: rdb}
}

type RedisVerdictCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func verdictKey(sessionID string) string {
	return fmt.Sprintf("integrity:verdict:%s", sessionID)
}

func (c *RedisVerdictCache) Get(ctx context.Context, sessionID string) (*model.IntegrityVerdict, error) {
	data, err := c.Client.Get(ctx, verdictKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v model.IntegrityVerdict
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *RedisVerdictCache) Set(ctx context.Context, v *model.IntegrityVerdict) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, verdictKey(v.SessionID), data, c.TTL).Err()
}

type RedisAlertPublisher struct {
	Client *redis.Client
}

func (p *RedisAlertPublisher) Publish(ctx context.Context, alert IntegrityAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	return p.Client.Publish(ctx, AlertChannel, payload).Err()
}

type noopVerdictCache struct{}

func (noopVerdictCache) Get(context.Context, string) (*model.IntegrityVerdict, error) {
	return nil, nil
}

func (noopVerdictCache) Set(context.Context, *model.IntegrityVerdict) error { return nil }

type noopAlertPublisher struct{}

func (noopAlertPublisher) Publish(context.Context, IntegrityAlert) error { return nil }
