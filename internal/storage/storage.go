package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/ignite/adoptimizer/internal/config"
	"github.com/ignite/adoptimizer/internal/segmentation"
	"github.com/ignite/adoptimizer/internal/service/audit"
)

// Storage archives full run results so past audits can be reopened and
// exported. Results live either on the local filesystem or in S3.
type Storage struct {
	config config.StorageConfig
	mu     sync.RWMutex

	// AWS storage (optional)
	aws *AWSStorage
}

// New creates a new Storage instance
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	s := &Storage{config: cfg}

	switch cfg.Type {
	case "aws", "s3":
		awsStorage, err := NewAWSStorage(ctx, cfg.S3Bucket, cfg.AWSRegion, cfg.GetAWSProfile())
		if err != nil {
			return nil, fmt.Errorf("initializing AWS storage: %w", err)
		}
		s.aws = awsStorage
	case "", "local":
		if cfg.LocalPath == "" {
			return nil, errors.New("storage.local_path is required for local storage")
		}
		if err := os.MkdirAll(cfg.LocalPath, 0o755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
	return s, nil
}

// RunKey is the object key for an audit's run result.
func RunKey(owner, id string) string {
	sum := sha256.Sum256([]byte(owner))
	return path.Join("runs", hex.EncodeToString(sum[:8]), id+".json")
}

// SaveRun archives res under the owner and audit id.
func (s *Storage) SaveRun(ctx context.Context, owner, id string, res *segmentation.RunResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshaling run result: %w", err)
	}
	key := RunKey(owner, id)
	if s.aws != nil {
		return s.aws.PutObject(ctx, key, data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := filepath.Join(s.config.LocalPath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing run result: %w", err)
	}
	return os.Rename(tmp, p)
}

// LoadRun returns audit.ErrNotFound when nothing is archived under id.
func (s *Storage) LoadRun(ctx context.Context, owner, id string) (*segmentation.RunResult, error) {
	key := RunKey(owner, id)
	var (
		data []byte
		err  error
	)
	if s.aws != nil {
		data, err = s.aws.GetObject(ctx, key)
	} else {
		s.mu.RLock()
		data, err = os.ReadFile(filepath.Join(s.config.LocalPath, filepath.FromSlash(key)))
		s.mu.RUnlock()
		if errors.Is(err, fs.ErrNotExist) {
			err = audit.ErrNotFound
		}
	}
	if err != nil {
		return nil, err
	}

	var res segmentation.RunResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("unmarshaling run result: %w", err)
	}
	return &res, nil
}

// Ping checks that the backing store is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	if s.aws != nil {
		return s.aws.HeadBucket(ctx)
	}
	_, err := os.Stat(s.config.LocalPath)
	return err
}
