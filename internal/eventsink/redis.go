// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisPublisher abstracts the minimal surface needed to fan events out to
// a Redis stream, the same narrowing the teacher applies to RedisEvaler:
// code against the interface, swap in LoggingRedisPublisher for a
// dependency-free demo or GoRedisPublisher for a real client.
type RedisPublisher interface {
	XAdd(ctx context.Context, stream string, values map[string]interface{}) error
}

// LoggingRedisPublisher is a dependency-free stand-in that prints what it
// would have published. Not for production use.
type LoggingRedisPublisher struct{}

// XAdd implements RedisPublisher.
func (LoggingRedisPublisher) XAdd(ctx context.Context, stream string, values map[string]interface{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	fmt.Printf("[redis-events] XADD %s %v\n", stream, values)
	return nil
}

// GoRedisPublisher is a production Redis client wrapper using
// github.com/redis/go-redis/v9.
type GoRedisPublisher struct{ c *redis.Client }

// NewGoRedisPublisher connects to a Redis server at addr.
func NewGoRedisPublisher(addr string) *GoRedisPublisher {
	return &GoRedisPublisher{c: redis.NewClient(&redis.Options{Addr: addr})}
}

// XAdd implements RedisPublisher.
func (g *GoRedisPublisher) XAdd(ctx context.Context, stream string, values map[string]interface{}) error {
	return g.c.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values}).Err()
}

// RedisExportBackend implements ExportBackend by publishing each event to
// a Redis stream as a single JSON-encoded field.
type RedisExportBackend struct {
	publisher RedisPublisher
	stream    string
	timeout   time.Duration
}

// NewRedisExportBackend builds a backend publishing to the given stream
// name. addr selects between a real client (non-empty) and the logging
// stand-in (empty), matching the teacher's BuildPersister fallback.
func NewRedisExportBackend(addr, stream string) *RedisExportBackend {
	var pub RedisPublisher
	if addr != "" {
		pub = NewGoRedisPublisher(addr)
	} else {
		pub = LoggingRedisPublisher{}
	}
	if stream == "" {
		stream = "coolsup-events"
	}
	return &RedisExportBackend{publisher: pub, stream: stream, timeout: 2 * time.Second}
}

// Export implements ExportBackend.
func (b *RedisExportBackend) Export(e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	return b.publisher.XAdd(ctx, b.stream, map[string]interface{}{"payload": string(payload)})
}
