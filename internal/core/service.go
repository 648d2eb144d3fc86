package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/OrderImport/internal/config"
	"github.com/JonMunkholm/OrderImport/internal/ingest"
	"github.com/JonMunkholm/OrderImport/internal/logging"
	"github.com/JonMunkholm/OrderImport/internal/orders"
)

// ErrFileOutsideBase is returned for import paths that escape the base directory.
var ErrFileOutsideBase = errors.New("file is outside the import directory")

// Service runs imports against one order store. Imports are serialized by
// the limiter; reads of the run history and the store are concurrent.
type Service struct {
	store   orders.Store
	cfg     config.ImportConfig
	profile *config.Profile
	baseDir string

	limiter *ImportLimiter
	history *RunHistory
}

// NewService creates a Service. profile may be nil.
func NewService(store orders.Store, cfg config.ImportConfig, profile *config.Profile) (*Service, error) {
	if store == nil {
		return nil, errors.New("order store is required")
	}

	baseDir, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve import directory: %w", err)
	}

	return &Service{
		store:   store,
		cfg:     cfg,
		profile: profile,
		baseDir: baseDir,
		limiter: NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		history: NewRunHistory(cfg.HistorySize),
	}, nil
}

// BaseDir returns the absolute directory import files are resolved against.
func (s *Service) BaseDir() string { return s.baseDir }

// RunImport imports one file and records the result in the run history.
//
// Configuration problems are returned before any slot is taken and are not
// recorded. Runs that started are always recorded, including aborted ones;
// the returned result is non-nil whenever the importer ran.
func (s *Service) RunImport(ctx context.Context, req ImportRequest) (*ingest.Result, error) {
	path, err := s.resolvePath(req.File)
	if err != nil {
		return nil, err
	}

	opts, err := BuildOptions(s.cfg, s.profile, req, path)
	if err != nil {
		return nil, err
	}

	logger := logging.ForImport(ctx, string(req.Format), req.File)

	imp, err := ingest.New(opts, s.store, logger)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx, path); err != nil {
		return nil, err
	}
	defer s.limiter.Release(path)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	res, err := imp.Import(ctx)
	if res != nil {
		res.FileName = req.File
		s.history.Add(res)
	}
	return res, err
}

// resolvePath maps a request path onto a file inside the base directory.
func (s *Service) resolvePath(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", &ingest.ConfigError{Option: "file", Reason: "is required"}
	}

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.baseDir, path)
	}
	path = filepath.Clean(path)

	base := s.baseDir
	if !within(base, path) {
		return "", fmt.Errorf("%w: %s", ErrFileOutsideBase, name)
	}

	// Symlinks are followed before the final check. A missing file is left
	// for the importer to report.
	resolved, err := filepath.EvalSymlinks(path)
	if errors.Is(err, fs.ErrNotExist) {
		return path, nil
	}
	if err != nil {
		return "", &ingest.ConfigError{Option: "file", Reason: err.Error()}
	}
	if b, err := filepath.EvalSymlinks(base); err == nil {
		base = b
	}
	if !within(base, resolved) {
		return "", fmt.Errorf("%w: %s", ErrFileOutsideBase, name)
	}
	return resolved, nil
}

// within reports whether path lies inside dir. Both must be clean.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

// Run returns a recorded import result.
func (s *Service) Run(importID string) (*ingest.Result, error) {
	return s.history.Get(importID)
}

// Runs returns recent import results, newest first.
func (s *Service) Runs() []*ingest.Result {
	return s.history.List()
}

// FindOrder returns the stored order for a business key.
func (s *Service) FindOrder(ctx context.Context, orderID string) (orders.Order, error) {
	return s.store.FindByOrderID(ctx, orderID)
}

// CountOrders returns the number of stored orders.
func (s *Service) CountOrders(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// LimiterStatus returns the import limiter state.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
