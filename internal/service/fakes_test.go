package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/asmil/asmil-api/internal/models"
	appErrors "github.com/asmil/asmil-api/pkg/errors"
)

// memoryCache is an in-process CacheRepository storing JSON like the Redis one.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	m.deleted = append(m.deleted, pattern)
	return nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateAggregates(context.Context) { c.calls++ }

// fakeTx runs fn without a database; repositories under test ignore the nil tx.
func fakeTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

type fakeSequences struct {
	values map[string]int
}

func (f *fakeSequences) Next(_ context.Context, name string, year int) (int, error) {
	if f.values == nil {
		f.values = map[string]int{}
	}
	f.values[name]++
	return f.values[name], nil
}

func (f *fakeSequences) NextTx(ctx context.Context, _ *sqlx.Tx, name string, year int) (int, error) {
	return f.Next(ctx, name, year)
}

type fakeAudit struct {
	entries []*models.AuditLog
}

func (f *fakeAudit) Create(_ context.Context, entry *models.AuditLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeEnrollmentLookup struct {
	items map[string]models.EnrollmentDetail
}

func (f *fakeEnrollmentLookup) FindByID(_ context.Context, id string) (*models.EnrollmentDetail, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

type fakeImages struct {
	stored  []string
	removed []string
	err     error
}

func (f *fakeImages) Store(folder, owner string, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	url := "/uploads/" + folder + "/" + owner + ".png"
	f.stored = append(f.stored, url)
	return url, nil
}

func (f *fakeImages) Remove(publicURL string) {
	f.removed = append(f.removed, publicURL)
}

func timePtr(t time.Time) *time.Time { return &t }
