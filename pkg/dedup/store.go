// Package dedup tracks which item identifiers have already been processed so
// reruns against the same source are idempotent.
//
// The id set is read once at the start of a run and written once at the end.
// Two simultaneous runs against one store are not guarded against; the last
// writer wins.
package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/otherjamesbrown/triage-cli/pkg/logging"
)

// DefaultMaxTracked bounds the persisted id set to the most recent entries.
const DefaultMaxTracked = 1000

// Store persists the set of processed item ids.
type Store interface {
	// Load returns the persisted id set. A missing or unreadable backing
	// store returns an empty set, never an error that fails the run.
	Load(ctx context.Context) (map[string]struct{}, error)

	// Save persists the id set, trimmed to the store's tracking window.
	Save(ctx context.Context, ids map[string]struct{}) error
}

// FilterNew returns the items whose ids are not in processed, preserving
// input order.
func FilterNew[T any](items []T, id func(T) string, processed map[string]struct{}) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if _, seen := processed[id(item)]; seen {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Record adds ids to the set and returns it. Every fetched-and-processed id
// is recorded, whether or not the item was found relevant.
func Record(processed map[string]struct{}, ids []string) map[string]struct{} {
	if processed == nil {
		processed = make(map[string]struct{}, len(ids))
	}
	for _, id := range ids {
		processed[id] = struct{}{}
	}
	return processed
}

// fileState is the JSON shape persisted by FileStore. Order is retained so
// trimming keeps the most recent ids.
type fileState struct {
	ProcessedIDs []string `json:"processed_ids"`
}

// FileStore persists the id set as a JSON file.
type FileStore struct {
	path       string
	maxTracked int
	order      []string // insertion order of known ids, oldest first
	logger     logging.Logger
}

// NewFileStore creates a file-backed store. maxTracked <= 0 uses
// DefaultMaxTracked.
func NewFileStore(path string, maxTracked int, logger logging.Logger) *FileStore {
	if maxTracked <= 0 {
		maxTracked = DefaultMaxTracked
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FileStore{path: path, maxTracked: maxTracked, logger: logger}
}

// Load reads the persisted set. Missing or corrupt files degrade to an empty
// set so the run processes everything as new.
func (s *FileStore) Load(ctx context.Context) (map[string]struct{}, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Dedup store unreadable, processing everything as new", logging.Err(err))
		}
		s.order = nil
		return map[string]struct{}{}, nil
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("Dedup store corrupt, processing everything as new", logging.Err(err))
		s.order = nil
		return map[string]struct{}{}, nil
	}

	s.order = state.ProcessedIDs
	set := make(map[string]struct{}, len(state.ProcessedIDs))
	for _, id := range state.ProcessedIDs {
		set[id] = struct{}{}
	}
	return set, nil
}

// Save writes the set back, preserving the loaded order for known ids and
// appending new ones, then trimming to the most recent maxTracked entries.
func (s *FileStore) Save(ctx context.Context, ids map[string]struct{}) error {
	ordered := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range s.order {
		if _, ok := ids[id]; ok {
			ordered = append(ordered, id)
			seen[id] = struct{}{}
		}
	}
	for id := range ids {
		if _, ok := seen[id]; !ok {
			ordered = append(ordered, id)
		}
	}

	if len(ordered) > s.maxTracked {
		ordered = ordered[len(ordered)-s.maxTracked:]
	}

	data, err := json.MarshalIndent(fileState{ProcessedIDs: ordered}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling dedup state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating dedup store directory: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing dedup store: %w", err)
	}

	s.order = ordered
	return nil
}

// RedisStore persists the id set in a Redis sorted set scored by insertion
// sequence, for operators who already run Redis and want shared state across
// hosts.
type RedisStore struct {
	client     *redis.Client
	key        string
	maxTracked int
	logger     logging.Logger
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client, key string, maxTracked int, logger logging.Logger) *RedisStore {
	if key == "" {
		key = "triage:processed_ids"
	}
	if maxTracked <= 0 {
		maxTracked = DefaultMaxTracked
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RedisStore{client: client, key: key, maxTracked: maxTracked, logger: logger}
}

// Load reads the persisted set. An unreachable server degrades to an empty
// set so the run processes everything as new.
func (s *RedisStore) Load(ctx context.Context) (map[string]struct{}, error) {
	members, err := s.client.ZRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		s.logger.Warn("Dedup store unreachable, processing everything as new", logging.Err(err))
		return map[string]struct{}{}, nil
	}

	set := make(map[string]struct{}, len(members))
	for _, id := range members {
		set[id] = struct{}{}
	}
	return set, nil
}

// Save adds any new ids and trims the sorted set to the most recent
// maxTracked entries.
func (s *RedisStore) Save(ctx context.Context, ids map[string]struct{}) error {
	if len(ids) == 0 {
		return nil
	}

	// Score by current max rank so newly added ids sort after existing ones.
	card, err := s.client.ZCard(ctx, s.key).Result()
	if err != nil {
		return fmt.Errorf("reading dedup set size: %w", err)
	}

	members := make([]redis.Z, 0, len(ids))
	next := float64(card)
	for id := range ids {
		members = append(members, redis.Z{Score: next, Member: id})
		next++
	}

	pipe := s.client.TxPipeline()
	pipe.ZAddNX(ctx, s.key, members...)
	pipe.ZRemRangeByRank(ctx, s.key, 0, int64(-s.maxTracked-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing dedup set: %w", err)
	}

	return nil
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*RedisStore)(nil)
)
