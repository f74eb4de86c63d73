package audit

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"

	"github.com/ignite/adoptimizer/internal/datanorm"
	"github.com/ignite/adoptimizer/internal/domain"
	"github.com/ignite/adoptimizer/internal/pkg/distlock"
	"github.com/ignite/adoptimizer/internal/segmentation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const scenarioCSV = `ad_id,Spend,Clicks,Impressions,Campaign
a1,100,50,1000,Spring
a2,120,55,1100,Spring
a3,10,40,2000,Brand
a4,15,38,1900,Brand
a5,500,20,500,Promo
a6,480,22,520,Promo
`

// mockRepo is an in-memory repository for testing.
type mockRepo struct {
	mu     sync.RWMutex
	audits map[string]domain.Audit
	err    error
}

func newMockRepo() *mockRepo {
	return &mockRepo{audits: make(map[string]domain.Audit)}
}

func (m *mockRepo) CreateAudit(_ context.Context, a *domain.Audit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.audits[a.ID] = *a
	return nil
}

func (m *mockRepo) GetAudit(_ context.Context, owner, id string) (*domain.Audit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.audits[id]
	if !ok || a.Owner != owner {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *mockRepo) ListAudits(_ context.Context, owner string, f ListFilter) ([]domain.Audit, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Audit
	for _, a := range m.audits {
		if a.Owner == owner {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if f.Offset >= len(out) {
		return []domain.Audit{}, total, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

type mockArchive struct {
	mu   sync.Mutex
	runs map[string]*segmentation.RunResult
	err  error
}

func newMockArchive() *mockArchive {
	return &mockArchive{runs: make(map[string]*segmentation.RunResult)}
}

func (m *mockArchive) SaveRun(_ context.Context, owner, id string, res *segmentation.RunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs[owner+"/"+id] = res
	return nil
}

func (m *mockArchive) LoadRun(_ context.Context, owner, id string) (*segmentation.RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.runs[owner+"/"+id]
	if !ok {
		return nil, ErrNotFound
	}
	return res, nil
}

type mockCache struct {
	mu   sync.Mutex
	data map[string]*segmentation.RunResult
	sets int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string]*segmentation.RunResult)}
}

func (m *mockCache) Get(_ context.Context, key string) (*segmentation.RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return res, nil
}

func (m *mockCache) Set(_ context.Context, key string, res *segmentation.RunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = res
	m.sets++
	return nil
}

func newTestService(repo Repository, opts ...Option) *Service {
	return NewService(
		segmentation.New(segmentation.DefaultConfig()),
		datanorm.NewNormalizer(datanorm.DefaultSynonyms(), 0),
		repo,
		opts...,
	)
}

func TestAnalyze_Scenario(t *testing.T) {
	repo := newMockRepo()
	archive := newMockArchive()
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(repo, WithArchive(archive), WithClock(func() time.Time { return fixed }))

	out, err := svc.Analyze(context.Background(), Upload{
		Filename: "march.csv",
		Owner:    " Owner@Example.com ",
		Content:  []byte(scenarioCSV),
	})
	require.NoError(t, err)

	a := out.Audit
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "owner@example.com", a.Owner)
	assert.Equal(t, 6, a.AdsAnalyzed)
	assert.InDelta(t, 980, a.PotentialSavings, 1e-9)
	assert.InDelta(t, 1225, a.TotalSpend, 1e-9)
	assert.Equal(t, fixed, a.CreatedAt)
	assert.Equal(t, ContentHash([]byte(scenarioCSV)), a.ContentHash)
	assert.False(t, out.Cached)

	require.NotNil(t, out.Report)
	assert.Len(t, out.Report.RiskyAds, 2)
	assert.Contains(t, repo.audits, a.ID)
	assert.Contains(t, archive.runs, a.Owner+"/"+a.ID)

	// passthrough columns survive ingestion
	assert.Equal(t, "Spring", out.Result.DetailedResults[0].Passthrough[0].Value)
}

func TestAnalyze_InputErrors(t *testing.T) {
	svc := newTestService(newMockRepo(), WithMaxBytes(64))
	ctx := context.Background()

	_, err := svc.Analyze(ctx, Upload{Filename: "x.csv"})
	assert.Equal(t, segmentation.KindInvalidInput, segmentation.KindOf(err))

	_, err = svc.Analyze(ctx, Upload{Filename: "x.csv", Content: bytes.Repeat([]byte("a"), 65)})
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = svc.Analyze(ctx, Upload{Filename: "x.csv", Content: []byte("name,cost\na,1\n")})
	var segErr *segmentation.Error
	require.ErrorAs(t, err, &segErr)
	assert.Equal(t, segmentation.KindMissingColumns, segErr.Kind)
	assert.Equal(t, []string{"Clicks", "Impressions"}, segErr.Missing)

	_, err = svc.Analyze(ctx, Upload{Filename: "x.csv", Content: []byte("Spend,Clicks,Impressions\n1,2,3\n")})
	assert.Equal(t, segmentation.KindInsufficientData, segmentation.KindOf(err))

	_, err = svc.Analyze(ctx, Upload{Filename: "x.pdf", Content: []byte("%PDF-1.4\x00\x01")})
	assert.Equal(t, segmentation.KindInvalidInput, segmentation.KindOf(err))
}

func TestAnalyze_CacheHit(t *testing.T) {
	cache := newMockCache()
	svc := newTestService(newMockRepo(), WithCache(cache))
	ctx := context.Background()
	up := Upload{Filename: "march.csv", Owner: "o", Content: []byte(scenarioCSV)}

	first, err := svc.Analyze(ctx, up)
	require.NoError(t, err)
	second, err := svc.Analyze(ctx, up)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, cache.sets)
	assert.NotEqual(t, first.Audit.ID, second.Audit.ID, "each upload is its own audit")
	assert.Equal(t, first.Audit.PotentialSavings, second.Audit.PotentialSavings)
}

func TestAnalyze_CacheKeyIncludesSettings(t *testing.T) {
	cache := newMockCache()
	ctx := context.Background()
	up := Upload{Filename: "march.csv", Content: []byte(scenarioCSV)}

	_, err := newTestService(nil, WithCache(cache)).Analyze(ctx, up)
	require.NoError(t, err)

	cfg := segmentation.DefaultConfig()
	cfg.RiskyCPCMultiplier = 5
	other := NewService(segmentation.New(cfg), datanorm.NewNormalizer(datanorm.DefaultSynonyms(), 0), nil, WithCache(cache))
	out, err := other.Analyze(ctx, up)
	require.NoError(t, err)
	assert.False(t, out.Cached)
	assert.Zero(t, out.Audit.PotentialSavings)
	assert.Equal(t, 2, cache.sets)
}

func TestAnalyze_CacheKeyIncludesFormat(t *testing.T) {
	cache := newMockCache()
	svc := newTestService(nil, WithCache(cache))
	ctx := context.Background()

	out, err := svc.Analyze(ctx, Upload{Filename: "march.csv", Content: []byte(scenarioCSV)})
	require.NoError(t, err)
	assert.False(t, out.Cached)

	// same bytes under a spreadsheet name are not a workbook, warm cache or not
	_, err = svc.Analyze(ctx, Upload{Filename: "march.xlsx", Content: []byte(scenarioCSV)})
	require.Error(t, err)
	assert.Equal(t, segmentation.KindInvalidInput, segmentation.KindOf(err))

	// a name that still reads as CSV reuses the cached run
	out, err = svc.Analyze(ctx, Upload{Filename: "march.txt", Content: []byte(scenarioCSV)})
	require.NoError(t, err)
	assert.True(t, out.Cached)
	assert.Equal(t, 1, cache.sets)

	_, hit := cache.data[svc.cacheKey(ContentHash([]byte(scenarioCSV)), datanorm.FormatXLSX)]
	assert.False(t, hit)
}

func TestAnalyze_IdenticalUploadsComputedOnce(t *testing.T) {
	cache := newMockCache()
	svc := newTestService(newMockRepo(),
		WithCache(cache),
		WithLocks(func(key string) distlock.DistLock { return distlock.NewLocalLock(key) }, time.Minute),
	)
	up := Upload{Filename: "march.csv", Owner: "o", Content: []byte(scenarioCSV)}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Analyze(context.Background(), up)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, cache.sets)
}

// trackingLock records how the service drives a lock.
type trackingLock struct {
	*distlock.LocalLock
	mu       sync.Mutex
	extends  int
	released bool
}

func (l *trackingLock) Extend(ctx context.Context, ttl time.Duration) error {
	l.mu.Lock()
	l.extends++
	l.mu.Unlock()
	return l.LocalLock.Extend(ctx, ttl)
}

func (l *trackingLock) Release(ctx context.Context) error {
	l.mu.Lock()
	l.released = true
	l.mu.Unlock()
	return l.LocalLock.Release(ctx)
}

func TestAnalyze_LockKeptAliveUntilDone(t *testing.T) {
	var lock *trackingLock
	svc := newTestService(nil, WithLocks(func(key string) distlock.DistLock {
		lock = &trackingLock{LocalLock: distlock.NewLocalLock(key)}
		return lock
	}, 2*time.Millisecond))

	_, err := svc.Analyze(context.Background(), Upload{Filename: "march.csv", Content: []byte(scenarioCSV)})
	require.NoError(t, err)
	require.NotNil(t, lock)

	lock.mu.Lock()
	assert.True(t, lock.released)
	extends := lock.extends
	lock.mu.Unlock()

	// the refresher stops with the run
	time.Sleep(20 * time.Millisecond)
	lock.mu.Lock()
	assert.Equal(t, extends, lock.extends)
	lock.mu.Unlock()
}

func TestAnalyze_LockTimeout(t *testing.T) {
	up := Upload{Filename: "march.csv", Content: []byte(scenarioCSV)}
	svc := newTestService(nil,
		WithLocks(func(key string) distlock.DistLock { return distlock.NewLocalLock(key) }, time.Minute),
		WithLockWait(20*time.Millisecond),
	)

	holder := distlock.NewLocalLock("audit:" + svc.cacheKey(ContentHash(up.Content), datanorm.FormatCSV))
	ok, _ := holder.Acquire(context.Background())
	require.True(t, ok)
	defer holder.Release(context.Background())

	_, err := svc.Analyze(context.Background(), up)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestAnalyze_RepoFailure(t *testing.T) {
	repo := newMockRepo()
	repo.err = errors.New("connection refused")
	svc := newTestService(repo, WithArchive(newMockArchive()))

	_, err := svc.Analyze(context.Background(), Upload{Filename: "a.csv", Content: []byte(scenarioCSV)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record audit")
}

func TestAnalyze_ArchiveFailureIsNotFatal(t *testing.T) {
	archive := newMockArchive()
	archive.err = errors.New("bucket gone")
	repo := newMockRepo()
	svc := newTestService(repo, WithArchive(archive))

	out, err := svc.Analyze(context.Background(), Upload{Filename: "a.csv", Content: []byte(scenarioCSV)})
	require.NoError(t, err)
	assert.Contains(t, repo.audits, out.Audit.ID)

	detail, err := svc.Detail(context.Background(), "", out.Audit.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.Report)
}

func TestHistoryAndDetail(t *testing.T) {
	repo := newMockRepo()
	archive := newMockArchive()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(repo, WithArchive(archive), WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"jan.csv", "feb.csv"} {
		out, err := svc.Analyze(ctx, Upload{Filename: name, Owner: "alice", Content: []byte(scenarioCSV)})
		require.NoError(t, err)
		ids = append(ids, out.Audit.ID)
	}
	_, err := svc.Analyze(ctx, Upload{Filename: "x.csv", Owner: "bob", Content: []byte(scenarioCSV)})
	require.NoError(t, err)

	list, total, err := svc.History(ctx, "ALICE", ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "feb.csv", list[0].Filename)

	detail, err := svc.Detail(ctx, "alice", ids[0])
	require.NoError(t, err)
	assert.Equal(t, "jan.csv", detail.Audit.Filename)
	require.NotNil(t, detail.Report)
	assert.Equal(t, 6, detail.Report.Summary.AdsAnalyzed)

	_, err = svc.Detail(ctx, "bob", ids[0])
	assert.ErrorIs(t, err, ErrNotFound)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(ctx, "alice", ids[0], &buf))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Risky Ads")
}

func TestHistory_NoRepository(t *testing.T) {
	svc := newTestService(nil)
	list, total, err := svc.History(context.Background(), "x", ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)

	_, err = svc.Detail(context.Background(), "x", "id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFilterNormalize(t *testing.T) {
	assert.Equal(t, ListFilter{Limit: DefaultListLimit}, ListFilter{}.Normalize())
	assert.Equal(t, ListFilter{Limit: MaxListLimit, Offset: 0}, ListFilter{Limit: 1000, Offset: -3}.Normalize())
}
