package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ignite/adoptimizer/internal/datanorm"
	"github.com/ignite/adoptimizer/internal/domain"
	"github.com/ignite/adoptimizer/internal/pkg/distlock"
	"github.com/ignite/adoptimizer/internal/pkg/logger"
	"github.com/ignite/adoptimizer/internal/report"
	"github.com/ignite/adoptimizer/internal/segmentation"
)

// LockFactory returns a lock guarding analysis of one upload fingerprint.
type LockFactory func(key string) distlock.DistLock

// Upload is one file submitted for analysis.
type Upload struct {
	Filename string
	Owner    string
	Content  []byte
}

// Outcome is the result of an analysis or a history lookup. Result and
// Report are nil when the run result is no longer archived.
type Outcome struct {
	Audit  *domain.Audit
	Result *segmentation.RunResult
	Report *report.Report
	Cached bool
}

const (
	defaultMaxBytes = 20 << 20
	defaultLockWait = 30 * time.Second
	lockPoll        = 100 * time.Millisecond
)

// Service runs uploads through ingestion and the segmentation engine and
// records the outcome. It is safe for concurrent use.
type Service struct {
	engine     *segmentation.Engine
	normalizer *datanorm.Normalizer
	classifier *datanorm.Classifier
	repo       Repository

	archive  Archive
	cache    Cache
	locks    LockFactory
	lockTTL  time.Duration
	maxBytes int64
	lockWait time.Duration
	now      func() time.Time

	settings string
}

// Option configures optional collaborators.
type Option func(*Service)

// WithArchive stores full run results so audits can be reopened.
func WithArchive(a Archive) Option { return func(s *Service) { s.archive = a } }

// WithCache memoizes run results by content fingerprint.
func WithCache(c Cache) Option { return func(s *Service) { s.cache = c } }

// WithLocks serializes concurrent analysis of identical uploads. A held lock
// is extended every ttl/2 while the engine runs.
func WithLocks(f LockFactory, ttl time.Duration) Option {
	return func(s *Service) {
		s.locks = f
		s.lockTTL = ttl
	}
}

// WithMaxBytes caps the upload size.
func WithMaxBytes(n int64) Option { return func(s *Service) { s.maxBytes = n } }

// WithLockWait bounds how long Analyze waits for an identical upload.
func WithLockWait(d time.Duration) Option { return func(s *Service) { s.lockWait = d } }

// WithClock overrides the audit timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService creates an audit service. repo may be nil, in which case
// nothing is persisted and History is always empty.
func NewService(engine *segmentation.Engine, normalizer *datanorm.Normalizer, repo Repository, opts ...Option) *Service {
	s := &Service{
		engine:     engine,
		normalizer: normalizer,
		classifier: datanorm.NewClassifier(),
		repo:       repo,
		maxBytes:   defaultMaxBytes,
		lockWait:   defaultLockWait,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.settings = settingsFingerprint(engine.Config(), normalizer)
	return s
}

// settingsFingerprint identifies everything besides the file bytes that
// influences a run result.
func settingsFingerprint(cfg segmentation.Config, n *datanorm.Normalizer) string {
	data, _ := json.Marshal(struct {
		Engine   segmentation.Config
		Synonyms datanorm.Synonyms
		MaxRows  int
	}{cfg, n.Synonyms(), n.MaxRows()})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:6])
}

// cacheKey identifies a run result: the same bytes read as another format,
// or under other settings, are a different run.
func (s *Service) cacheKey(hash string, format datanorm.Format) string {
	return hash + ":" + string(format) + ":" + s.settings
}

// ContentHash returns the hex sha256 of an upload.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Analyze ingests an upload, segments it and records the audit. Input
// problems come back as *segmentation.Error.
func (s *Service) Analyze(ctx context.Context, up Upload) (*Outcome, error) {
	if int64(len(up.Content)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(up.Content), s.maxBytes)
	}
	if len(up.Content) == 0 {
		return nil, segmentation.InvalidInput("the uploaded file is empty")
	}

	owner := domain.NormalizeOwner(up.Owner)
	format := s.classify(up)
	if format == datanorm.FormatUnknown {
		_, err := datanorm.Read(format, up.Content)
		logger.Info("audit rejected", "owner", owner, "file", up.Filename, "error", err)
		return nil, err
	}
	hash := ContentHash(up.Content)
	key := s.cacheKey(hash, format)

	res, cached := s.lookup(ctx, key)
	if !cached {
		var err error
		res, cached, err = s.run(ctx, key, format, up)
		if err != nil {
			logger.Info("audit rejected", "owner", owner, "file", up.Filename, "error", err)
			return nil, err
		}
	}

	a := &domain.Audit{
		ID:               uuid.NewString(),
		Filename:         up.Filename,
		Owner:            owner,
		TotalSpend:       res.TotalSpend,
		PotentialSavings: res.PotentialSavings,
		Confidence:       res.ModelAccuracyScore,
		AdsAnalyzed:      len(res.DetailedResults),
		ContentHash:      hash,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.persist(ctx, a, res); err != nil {
		return nil, err
	}

	logger.Info("audit completed",
		"audit_id", a.ID,
		"owner", owner,
		"ads", a.AdsAnalyzed,
		"potential_savings", a.PotentialSavings,
		"cached", cached,
	)
	return &Outcome{Audit: a, Result: res, Report: report.Build(res), Cached: cached}, nil
}

// run parses and segments the upload while holding the fingerprint lock,
// so identical concurrent uploads are computed once.
func (s *Service) run(ctx context.Context, key string, format datanorm.Format, up Upload) (*segmentation.RunResult, bool, error) {
	ds, err := s.ingest(format, up)
	if err != nil {
		return nil, false, err
	}

	if s.locks != nil {
		lock := s.locks("audit:" + key)
		waitCtx, cancel := context.WithTimeout(ctx, s.lockWait)
		err := distlock.Wait(waitCtx, lock, lockPoll)
		cancel()
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrBusy, err)
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("failed to release audit lock", "error", err)
			}
		}()
		stop := distlock.KeepAlive(ctx, lock, s.lockTTL, func(err error) {
			logger.Warn("failed to extend audit lock", "error", err)
		})
		defer stop()
		// another request may have finished the same upload while we waited
		if res, ok := s.lookup(ctx, key); ok {
			return res, true, nil
		}
	}

	res, err := s.engine.Segment(ds)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, res); err != nil {
			logger.Warn("failed to cache run result", "error", err)
		}
	}
	return res, false, nil
}

func (s *Service) classify(up Upload) datanorm.Format {
	head := up.Content
	if len(head) > 512 {
		head = head[:512]
	}
	return s.classifier.Classify(up.Filename, head)
}

func (s *Service) ingest(format datanorm.Format, up Upload) (segmentation.Dataset, error) {
	table, err := datanorm.Read(format, up.Content)
	if err != nil {
		return nil, err
	}
	return s.normalizer.Normalize(table)
}

func (s *Service) lookup(ctx context.Context, key string) (*segmentation.RunResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	res, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			logger.Warn("result cache unavailable", "error", err)
		}
		return nil, false
	}
	return res, true
}

// persist writes the summary and archives the run concurrently. Archive
// failures are logged; the summary write decides the outcome.
func (s *Service) persist(ctx context.Context, a *domain.Audit, res *segmentation.RunResult) error {
	if s.repo == nil {
		return nil
	}
	if err := a.Validate(); err != nil {
		logger.Warn("audit not recorded", "audit_id", a.ID, "reason", err.Error())
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.repo.CreateAudit(gctx, a)
	})
	if s.archive != nil {
		g.Go(func() error {
			if err := s.archive.SaveRun(gctx, a.Owner, a.ID, res); err != nil {
				logger.Error("failed to archive run result", "audit_id", a.ID, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

// History returns the owner's past audits, newest first.
func (s *Service) History(ctx context.Context, owner string, filter ListFilter) ([]domain.Audit, int, error) {
	if s.repo == nil {
		return []domain.Audit{}, 0, nil
	}
	return s.repo.ListAudits(ctx, domain.NormalizeOwner(owner), filter.Normalize())
}

// Detail reopens one audit and, when archived, its full report.
func (s *Service) Detail(ctx context.Context, owner, id string) (*Outcome, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	owner = domain.NormalizeOwner(owner)
	a, err := s.repo.GetAudit(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Audit: a}
	if s.archive == nil {
		return out, nil
	}
	res, err := s.archive.LoadRun(ctx, owner, id)
	if errors.Is(err, ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	out.Result = res
	out.Report = report.Build(res)
	return out, nil
}

// Export writes the audit's report as an Excel workbook. It returns
// ErrNotFound when the run result is not archived.
func (s *Service) Export(ctx context.Context, owner, id string, w io.Writer) error {
	out, err := s.Detail(ctx, owner, id)
	if err != nil {
		return err
	}
	if out.Report == nil {
		return ErrNotFound
	}
	return report.WriteXLSX(w, out.Report)
}
