package config

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	rdbCtx = context.Background()
)

func GetRedisDB() *redis.Client {
	return rdb
}

// ConnectRedisOptional wires the rate-limit snapshot cache when REDIS_ADDR
// is configured. Absence of the variable, or a failed ping, leaves rdb nil
// — every caller through GetRedisObject/SetRedisObject degrades to a
// cache miss rather than an error, so Redis is never on the critical path
// for correctness (spec.md's risk envelope never depends on it).
func ConnectRedisOptional() {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return
	}
	client := redis.NewClient(&redis.Options{Addr: addr, PoolSize: 20})
	ctx, cancel := context.WithTimeout(rdbCtx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis at %s unreachable, disabling rate-limit snapshot cache: %v", addr, err)
		return
	}
	rdb = client
	log.Printf("connected to redis at %s", addr)
}

func GetRedisObject(key string, dest interface{}) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	val, err := rdb.Get(rdbCtx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func SetRedisObject(key string, obj interface{}, exp time.Duration) error {
	if rdb == nil {
		return nil
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return rdb.Set(rdbCtx, key, data, exp).Err()
}
