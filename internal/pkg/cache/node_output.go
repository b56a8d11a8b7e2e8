package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentforge-ai/agentforge/internal/domain/models"
	"github.com/redis/go-redis/v9"
)

// NodeOutputCache stores outputs of cacheable agents keyed by the agent and a
// digest of its resolved inputs. A hit lets the engine skip the run and emit
// NODE_CACHE_HIT instead.
type NodeOutputCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewNodeOutputCache(client *redis.Client, ttl time.Duration) *NodeOutputCache {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &NodeOutputCache{
		client: client,
		ttl:    ttl,
	}
}

type CachedOutput struct {
	Output   models.JSON `json:"output"`
	CachedAt time.Time   `json:"cachedAt"`
}

func (c *NodeOutputCache) generateKey(agentID models.AgentID, inputHash string) string {
	return fmt.Sprintf("agent:output:%s:%s", agentID, inputHash)
}

// hashInputs digests the resolved inputs. json.Marshal sorts map keys, so the
// digest is stable for equal inputs regardless of insertion order.
func hashInputs(inputs models.JSON) string {
	data, _ := json.Marshal(inputs)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func (c *NodeOutputCache) Get(ctx context.Context, agentID models.AgentID, inputs models.JSON) (*CachedOutput, error) {
	key := c.generateKey(agentID, hashInputs(inputs))

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var result CachedOutput
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *NodeOutputCache) Set(ctx context.Context, agentID models.AgentID, inputs, output models.JSON) error {
	key := c.generateKey(agentID, hashInputs(inputs))

	data, err := json.Marshal(CachedOutput{
		Output:   output,
		CachedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate removes all cached outputs for an agent, used when a definition
// changes in a way that affects its results.
func (c *NodeOutputCache) Invalidate(ctx context.Context, agentID models.AgentID) error {
	pattern := fmt.Sprintf("agent:output:%s:*", agentID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()

	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}

	return iter.Err()
}
