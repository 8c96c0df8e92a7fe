package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/scolaria/scolaria-api/pkg/errors"
)

type stubCacheRepo struct {
	entries map[string][]byte
	sets    int
	deletes []string
	lastTTL time.Duration
}

func newStubCacheRepo() *stubCacheRepo {
	return &stubCacheRepo{entries: make(map[string][]byte)}
}

func (s *stubCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	payload, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = payload
	s.sets++
	s.lastTTL = ttl
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	s.deletes = append(s.deletes, pattern)
	s.entries = make(map[string][]byte)
	return nil
}

func TestCacheServiceMissThenHit(t *testing.T) {
	repo := newStubCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "k", "value", 0))
	assert.Equal(t, time.Minute, repo.lastTTL)

	hit, err = svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "value", out)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newStubCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)

	require.NoError(t, svc.Set(context.Background(), "k", "value", 0))
	assert.Zero(t, repo.sets)

	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestClassWeekServedFromCache(t *testing.T) {
	cacheRepo := newStubCacheRepo()
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	sessions := newStubSessionRepo(mondaySession())
	svc := NewTimetableService(sessions, cacheSvc, "2024-2025", nil, nil)

	first, err := svc.ClassWeek(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, 1, cacheRepo.sets)

	// A second read must not touch the session store again.
	delete(sessions.sessions, "sess-base")
	second, err := svc.ClassWeek(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, len(first[0].Sessions), len(second[0].Sessions))
}

func TestSessionWritesInvalidateClassCache(t *testing.T) {
	cacheRepo := newStubCacheRepo()
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	sessions := newStubSessionRepo(mondaySession())
	svc := NewTimetableService(sessions, cacheSvc, "2024-2025", nil, nil)

	_, err := svc.ClassWeek(context.Background(), "c1")
	require.NoError(t, err)

	_, _, err = svc.Create(context.Background(), slotRequest(2, "08:00", "09:00"))
	require.NoError(t, err)
	require.NotEmpty(t, cacheRepo.deletes)
	assert.Equal(t, "timetable:class:c1:*", cacheRepo.deletes[0])

	week, err := svc.ClassWeek(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, week[1].Sessions, 1)
	assert.Equal(t, "Mardi", week[1].Name)
}

func TestCacheServiceInvalidate(t *testing.T) {
	repo := newStubCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	require.NoError(t, svc.Set(context.Background(), "timetable:class:c1:week", "x", 0))
	require.NoError(t, svc.Invalidate(context.Background(), "timetable:class:c1:*"))
	assert.Equal(t, []string{"timetable:class:c1:*"}, repo.deletes)
}
