// Package redis provides a Redis Stack (RediSearch) implementation of
// driven.VectorStore.
//
// Each build creates a new search index over its own key prefix. Commit
// points the table's alias at the new index and drops the previous index
// together with its documents, so FT.SEARCH against the alias always sees
// exactly one complete build.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/gdprqa/internal/adapters/driven/storage/vector"
	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// DefaultNamespace prefixes every key and index the store creates.
const DefaultNamespace = "gdprqa"

// Hash fields of one stored record.
const (
	fieldText     = "text"
	fieldVector   = "vector"
	fieldSeq      = "seq"
	fieldMetadata = "metadata"
	fieldDistance = "dist"
)

// Fields of the per-table meta hash.
const (
	metaIndex   = "index"
	metaDims    = "dims"
	metaRows    = "rows"
	metaBuiltAt = "built_at"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Options configures the Redis connection.
type Options struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
}

// Store is a RediSearch-backed vector store.
type Store struct {
	client    redis.UniversalClient
	namespace string
}

// NewStore connects to Redis and verifies the connection.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		// Replies are parsed in their RESP2 array form.
		Protocol: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis at %s: %v", domain.ErrVectorStoreUnavailable, opts.Addr, err)
	}
	return NewWithClient(client, opts.Namespace), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, namespace string) *Store {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Store{client: client, namespace: namespace}
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) aliasName(table string) string {
	return s.namespace + ":" + table
}

func (s *Store) metaKey(table string) string {
	return s.namespace + ":" + table + ":meta"
}

func (s *Store) indexName(table, build string) string {
	return s.namespace + ":" + table + ":" + build
}

// CreateIndexArgs returns the FT.CREATE arguments for a build index.
func CreateIndexArgs(index, prefix string, dims int) []any {
	return []any{
		"FT.CREATE", index,
		"ON", "HASH",
		"PREFIX", "1", prefix,
		"SCHEMA",
		fieldText, "TEXT",
		fieldSeq, "NUMERIC", "SORTABLE",
		fieldMetadata, "TEXT", "NOINDEX",
		fieldVector, "VECTOR", "FLAT", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(dims),
		"DISTANCE_METRIC", "COSINE",
	}
}

// CreateTable creates a new build index for table.
func (s *Store) CreateTable(ctx context.Context, name string, dimensions int) (driven.TableBuilder, error) {
	if name == "" || strings.ContainsAny(name, ": ") || dimensions <= 0 {
		return nil, fmt.Errorf("%w: table %q with %d dimensions", domain.ErrInvalidInput, name, dimensions)
	}

	build := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	index := s.indexName(name, build)
	prefix := index + ":"
	if err := s.client.Do(ctx, CreateIndexArgs(index, prefix, dimensions)...).Err(); err != nil {
		return nil, fmt.Errorf("%w: FT.CREATE %s: %v", domain.ErrVectorStoreUnavailable, index, err)
	}
	logger.Debug("redis: staging %s as %s", name, index)

	return &tableBuilder{store: s, name: name, index: index, prefix: prefix, dims: dimensions}, nil
}

type tableMeta struct {
	index string
	dims  int
	rows  int
}

func (s *Store) meta(ctx context.Context, name string) (*tableMeta, error) {
	vals, err := s.client.HGetAll(ctx, s.metaKey(name)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	if vals[metaIndex] == "" {
		return nil, nil
	}
	dims, _ := strconv.Atoi(vals[metaDims])
	rows, _ := strconv.Atoi(vals[metaRows])
	return &tableMeta{index: vals[metaIndex], dims: dims, rows: rows}, nil
}

// SearchArgs returns the FT.SEARCH arguments for a KNN query.
func SearchArgs(alias string, blob []byte, k int) []any {
	return []any{
		"FT.SEARCH", alias,
		fmt.Sprintf("*=>[KNN %d @%s $vec AS %s]", k, fieldVector, fieldDistance),
		"PARAMS", "2", "vec", blob,
		"RETURN", "4", fieldText, fieldSeq, fieldMetadata, fieldDistance,
		"SORTBY", fieldDistance, "ASC",
		"LIMIT", "0", strconv.Itoa(k),
		"DIALECT", "2",
	}
}

// Search runs a KNN query against the table alias. Scores are cosine
// similarities, 1 minus the reported cosine distance.
func (s *Store) Search(ctx context.Context, name string, vec []float32, limit int) ([]driven.VectorRow, error) {
	m, err := s.meta(ctx, name)
	if err != nil || m == nil {
		return nil, err
	}
	if len(vec) != m.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, table %q has %d",
			domain.ErrInvalidInput, len(vec), name, m.dims)
	}
	if limit <= 0 || m.rows == 0 {
		return nil, nil
	}

	reply, err := s.client.Do(ctx, SearchArgs(s.aliasName(name), vector.Encode(vec), fetchSize(limit, m.rows))...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: FT.SEARCH: %v", domain.ErrVectorStoreUnavailable, err)
	}
	rows, err := ParseSearchReply(reply)
	if err != nil {
		return nil, err
	}
	return vector.Rank(rows, limit), nil
}

// ParseSearchReply decodes a RESP2 FT.SEARCH reply:
// [total, key, [field, value, ...], key, [...], ...].
func ParseSearchReply(reply any) ([]driven.VectorRow, error) {
	values, ok := reply.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected FT.SEARCH reply %T", reply)
	}
	var rows []driven.VectorRow
	for i := 1; i+1 < len(values); i += 2 {
		fields, ok := values[i+1].([]any)
		if !ok {
			continue
		}
		row := driven.VectorRow{}
		for j := 0; j+1 < len(fields); j += 2 {
			key, _ := fields[j].(string)
			val := asString(fields[j+1])
			switch key {
			case fieldText:
				row.Record.Text = val
			case fieldSeq:
				row.Position, _ = strconv.Atoi(val)
			case fieldMetadata:
				if err := json.Unmarshal([]byte(val), &row.Record.Metadata); err != nil {
					return nil, fmt.Errorf("decoding metadata of %v: %w", values[i], err)
				}
			case fieldDistance:
				d, err := strconv.ParseFloat(val, 64)
				if err != nil {
					return nil, fmt.Errorf("parsing distance %q: %w", val, err)
				}
				row.Score = 1 - d
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// CountRows returns num_docs of the live index.
func (s *Store) CountRows(ctx context.Context, name string) (int, error) {
	m, err := s.meta(ctx, name)
	if err != nil || m == nil {
		return 0, err
	}
	reply, err := s.client.Do(ctx, "FT.INFO", s.aliasName(name)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: FT.INFO: %v", domain.ErrVectorStoreUnavailable, err)
	}
	return ParseNumDocs(reply)
}

// ParseNumDocs extracts num_docs from a RESP2 FT.INFO reply.
func ParseNumDocs(reply any) (int, error) {
	values, ok := reply.([]any)
	if !ok {
		return 0, fmt.Errorf("unexpected FT.INFO reply %T", reply)
	}
	for i := 0; i+1 < len(values); i += 2 {
		if key, _ := values[i].(string); key == "num_docs" {
			n, err := strconv.ParseFloat(asString(values[i+1]), 64)
			if err != nil {
				return 0, fmt.Errorf("parsing num_docs: %w", err)
			}
			return int(n), nil
		}
	}
	return 0, errors.New("FT.INFO reply has no num_docs")
}

type tableBuilder struct {
	store  *Store
	name   string
	index  string
	prefix string
	dims   int
	next   int
	done   bool
}

func (b *tableBuilder) Add(ctx context.Context, records []domain.IndexRecord) error {
	if b.done {
		return domain.ErrInvalidState
	}
	pipe := b.store.client.Pipeline()
	pos := b.next
	for _, rec := range records {
		if len(rec.Vector) != b.dims {
			return fmt.Errorf("%w: record has %d dimensions, want %d",
				domain.ErrInvalidInput, len(rec.Vector), b.dims)
		}
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}
		pipe.HSet(ctx, b.prefix+strconv.Itoa(pos),
			fieldText, rec.Text,
			fieldSeq, pos,
			fieldMetadata, string(meta),
			fieldVector, vector.Encode(rec.Vector),
		)
		pos++
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: writing batch: %v", domain.ErrIndexBuild, err)
	}
	b.next = pos
	return nil
}

func (b *tableBuilder) Commit(ctx context.Context) error {
	if b.done {
		return domain.ErrInvalidState
	}
	s := b.store
	old, err := s.meta(ctx, b.name)
	if err != nil {
		return err
	}

	if err := s.client.Do(ctx, "FT.ALIASUPDATE", s.aliasName(b.name), b.index).Err(); err != nil {
		return fmt.Errorf("%w: FT.ALIASUPDATE: %v", domain.ErrIndexBuild, err)
	}
	err = s.client.HSet(ctx, s.metaKey(b.name),
		metaIndex, b.index,
		metaDims, b.dims,
		metaRows, b.next,
		metaBuiltAt, time.Now().UTC().Format(time.RFC3339),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: updating meta: %v", domain.ErrIndexBuild, err)
	}
	b.done = true

	if old != nil && old.index != b.index {
		if err := s.client.Do(ctx, "FT.DROPINDEX", old.index, "DD").Err(); err != nil {
			logger.Warn("redis: dropping previous index %s: %v", old.index, err)
		}
	}
	logger.Debug("redis: %s now serves %s (%d rows)", b.name, b.index, b.next)
	return nil
}

func (b *tableBuilder) Abort(ctx context.Context) error {
	if b.done {
		return nil
	}
	b.done = true
	ctx = context.WithoutCancel(ctx)
	if err := b.store.client.Do(ctx, "FT.DROPINDEX", b.index, "DD").Err(); err != nil {
		return fmt.Errorf("dropping staged index %s: %w", b.index, err)
	}
	return nil
}

// fetchSize over-fetches twice the limit, up to the row count, so ties at
// the cut are resolved by insertion order.
func fetchSize(limit, rows int) int {
	return min(min(limit, rows)*2, rows)
}
