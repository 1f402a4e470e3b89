// Package redisstore implements rowstore.Store on Redis hashes. Every row is a
// hash keyed by its table's key column, and every stored column value keeps a
// set of the row keys holding it so equality lookups avoid scans.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"projects/internal/rowstore"
	"projects/pkg/platform/sentinel"
)

const (
	defaultKeyColumn = "id"
	nullMarker       = "\x00null"
	maxWatchRetries  = 8
)

// Store is a rowstore.Store over a Redis client.
type Store struct {
	client *redis.Client
	prefix string
	keys   map[string]string
	unique map[string][]string
}

// Option configures a Store.
type Option func(*Store)

// WithKey declares the column that identifies rows of table. Tables default to "id".
func WithKey(table, column string) Option {
	return func(s *Store) {
		s.keys[table] = column
	}
}

// WithUnique rejects writes that would duplicate a value in the given columns.
func WithUnique(table string, columns ...string) Option {
	return func(s *Store) {
		s.unique[table] = append(s.unique[table], columns...)
	}
}

// WithPrefix namespaces every key, e.g. per environment.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Store on an already connected client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		keys:   make(map[string]string),
		unique: make(map[string][]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) keyColumn(table string) string {
	if c, ok := s.keys[table]; ok {
		return c
	}
	return defaultKeyColumn
}

func (s *Store) rowKey(table, key string) string {
	return s.prefix + "row:" + table + ":" + key
}

func (s *Store) indexKey(table, column, value string) string {
	return s.prefix + "idx:" + table + ":" + column + ":" + value
}

func (s *Store) tableKey(table string) string {
	return s.prefix + "keys:" + table
}

func (s *Store) SelectOne(ctx context.Context, table, column string, value any) (rowstore.Row, error) {
	keys, err := s.lookup(ctx, table, column, value)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	for _, key := range keys {
		row, err := s.load(ctx, table, key)
		if errors.Is(err, rowstore.ErrNoSuchRow) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("select %s: %w", table, err)
		}
		return row, nil
	}
	return nil, fmt.Errorf("select %s where %s: %w", table, column, rowstore.ErrNoSuchRow)
}

func (s *Store) SelectAll(ctx context.Context, table, column string, value any) (rowstore.Cursor, error) {
	keys, err := s.lookup(ctx, table, column, value)
	if err != nil {
		return nil, fmt.Errorf("select all %s: %w", table, err)
	}
	return &cursor{ctx: ctx, store: s, table: table, keys: keys}, nil
}

func (s *Store) Insert(ctx context.Context, table string, values []rowstore.Pair) error {
	row := rowstore.FromPairs(values)
	keyColumn := s.keyColumn(table)
	rawKey, ok := row[keyColumn]
	if !ok || rawKey == nil {
		return fmt.Errorf("insert %s: missing key column %q: %w", table, keyColumn, sentinel.ErrInvalidState)
	}
	key := encode(rawKey)
	rowKey := s.rowKey(table, key)

	err := s.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, rowKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("duplicate %s: %w", keyColumn, sentinel.ErrConflict)
		}
		if err := s.checkUnique(ctx, tx, table, key, row); err != nil {
			return err
		}
		fields := make(map[string]any, len(values))
		for _, p := range values {
			fields[p.Column] = encode(p.Value)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, rowKey, fields)
			pipe.SAdd(ctx, s.tableKey(table), key)
			for _, p := range values {
				if p.Value != nil {
					pipe.SAdd(ctx, s.indexKey(table, p.Column, encode(p.Value)), key)
				}
			}
			return nil
		})
		return err
	}, append(s.uniqueKeys(table, row), rowKey)...)
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, table, keyColumn string, keyValue any, values []rowstore.Pair) error {
	keys, err := s.lookup(ctx, table, keyColumn, keyValue)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if len(keys) == 0 {
		return fmt.Errorf("update %s where %s: %w", table, keyColumn, rowstore.ErrNoSuchRow)
	}
	key := keys[0]
	rowKey := s.rowKey(table, key)
	changes := rowstore.FromPairs(values)

	err = s.watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGetAll(ctx, rowKey).Result()
		if err != nil {
			return err
		}
		if len(current) == 0 {
			return rowstore.ErrNoSuchRow
		}
		if err := s.checkUnique(ctx, tx, table, key, changes); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, p := range values {
				next := encode(p.Value)
				if old, ok := current[p.Column]; ok && old != nullMarker && old != next {
					pipe.SRem(ctx, s.indexKey(table, p.Column, old), key)
				}
				if p.Value != nil {
					pipe.SAdd(ctx, s.indexKey(table, p.Column, next), key)
				}
				pipe.HSet(ctx, rowKey, p.Column, next)
			}
			return nil
		})
		return err
	}, append(s.uniqueKeys(table, changes), rowKey)...)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

func (s *Store) ValueExists(ctx context.Context, table, column string, value any) (bool, error) {
	var (
		n   int64
		err error
	)
	if column == s.keyColumn(table) {
		n, err = s.client.Exists(ctx, s.rowKey(table, encode(value))).Result()
	} else {
		n, err = s.client.SCard(ctx, s.indexKey(table, column, encode(value))).Result()
	}
	if err != nil {
		return false, fmt.Errorf("exists %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}

// MaxInt reads the largest integer key of table. Only the key column is supported.
func (s *Store) MaxInt(ctx context.Context, table, column string) (int64, bool, error) {
	if column != s.keyColumn(table) {
		return 0, false, fmt.Errorf("max %s.%s: only the key column is tracked: %w", table, column, sentinel.ErrInvalidState)
	}
	keys, err := s.client.SMembers(ctx, s.tableKey(table)).Result()
	if err != nil {
		return 0, false, fmt.Errorf("max %s.%s: %w", table, column, err)
	}
	var (
		highest int64
		found   bool
	)
	for _, k := range keys {
		n, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("max %s.%s: key %q: %w", table, column, k, rowstore.ErrUnsupportedType)
		}
		if !found || n > highest {
			highest, found = n, true
		}
	}
	return highest, found, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

// lookup returns the sorted row keys whose column equals value.
func (s *Store) lookup(ctx context.Context, table, column string, value any) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	if column == s.keyColumn(table) {
		key := encode(value)
		n, err := s.client.Exists(ctx, s.rowKey(table, key)).Result()
		if err != nil || n == 0 {
			return nil, err
		}
		return []string{key}, nil
	}
	keys, err := s.client.SMembers(ctx, s.indexKey(table, column, encode(value))).Result()
	if err != nil {
		return nil, err
	}
	sortKeys(keys)
	return keys, nil
}

func (s *Store) load(ctx context.Context, table, key string) (rowstore.Values, error) {
	fields, err := s.client.HGetAll(ctx, s.rowKey(table, key)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, rowstore.ErrNoSuchRow
	}
	row := make(rowstore.Values, len(fields))
	for c, v := range fields {
		if v == nullMarker {
			row[c] = nil
			continue
		}
		row[c] = v
	}
	return row, nil
}

// uniqueKeys lists the index sets checkUnique reads for row. They are watched
// with the row so a concurrent writer claiming the same value aborts the transaction.
func (s *Store) uniqueKeys(table string, row rowstore.Values) []string {
	var keys []string
	for _, column := range s.unique[table] {
		if v, ok := row[column]; ok && v != nil {
			keys = append(keys, s.indexKey(table, column, encode(v)))
		}
	}
	return keys
}

func (s *Store) checkUnique(ctx context.Context, tx *redis.Tx, table, key string, row rowstore.Values) error {
	for _, column := range s.unique[table] {
		v, ok := row[column]
		if !ok || v == nil {
			continue
		}
		holders, err := tx.SMembers(ctx, s.indexKey(table, column, encode(v))).Result()
		if err != nil {
			return err
		}
		for _, h := range holders {
			if h != key {
				return fmt.Errorf("duplicate %s: %w", column, sentinel.ErrConflict)
			}
		}
	}
	return nil
}

// watch runs fn under optimistic locking, retrying when a watched key changed.
func (s *Store) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for range maxWatchRetries {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("too much contention: %w", sentinel.ErrUnavailable)
}

// encode renders a value as the text stored in hashes and index keys.
func encode(v any) string {
	switch x := v.(type) {
	case nil:
		return nullMarker
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	}
	if n, ok := rowstore.Normalize(v).(int64); ok {
		return strconv.FormatInt(n, 10)
	}
	return fmt.Sprint(v)
}

// sortKeys orders numeric keys numerically and everything else lexically.
func sortKeys(keys []string) {
	slices.SortFunc(keys, func(a, b string) int {
		x, errA := strconv.ParseInt(a, 10, 64)
		y, errB := strconv.ParseInt(b, 10, 64)
		if errA == nil && errB == nil {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
		return strings.Compare(a, b)
	})
}

type cursor struct {
	ctx   context.Context
	store *Store
	table string
	keys  []string
	cur   rowstore.Values
	err   error
}

func (c *cursor) Next() bool {
	for c.err == nil && len(c.keys) > 0 {
		key := c.keys[0]
		c.keys = c.keys[1:]
		row, err := c.store.load(c.ctx, c.table, key)
		if errors.Is(err, rowstore.ErrNoSuchRow) {
			continue
		}
		if err != nil {
			c.err = err
			return false
		}
		c.cur = row
		return true
	}
	return false
}

func (c *cursor) Row() rowstore.Row {
	if c.cur == nil {
		return nil
	}
	return c.cur
}

func (c *cursor) Err() error   { return c.err }
func (c *cursor) Close() error {
	c.keys = nil
	return nil
}
