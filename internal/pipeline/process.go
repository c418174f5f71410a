package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"restituiri/internal/config"
	"restituiri/internal/extract"
	"restituiri/internal/metrics"
	"restituiri/internal/storage"
)

const statusFailed = "error"

// ParseService turns the downloaded case pages (1.html .. N.html) into stored rows.
type ParseService struct {
	db     *storage.DB
	cfg    config.Config
	logger *zap.Logger
}

func NewParseService(db *storage.DB, cfg config.Config, logger *zap.Logger) *ParseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParseService{db: db, cfg: cfg, logger: logger}
}

type ParseResult struct {
	Files     int
	Rows      int
	Cancelled int
	Empty     int
	Skipped   int
	Missing   int
	Failed    int
}

func (r ParseResult) counts() map[string]int {
	return map[string]int{
		"files":     r.Files,
		"rows":      r.Rows,
		"cancelled": r.Cancelled,
		"empty":     r.Empty,
		"skipped":   r.Skipped,
		"missing":   r.Missing,
		"failed":    r.Failed,
	}
}

// ParseDir walks 1.html through max.html in dir. Files recorded by an earlier run are
// skipped, absent numbers are counted as missing, and unreadable files are logged and
// left unrecorded so the next run retries them.
func (s *ParseService) ParseDir(dir string, max int) (ParseResult, error) {
	start := time.Now()
	done, err := s.db.RecordedFiles()
	if err != nil {
		return ParseResult{}, fmt.Errorf("load parse progress: %w", err)
	}

	step := s.cfg.ProgressStep
	var res ParseResult
	for i := 1; i <= max; i++ {
		if step > 0 && i%step == 0 {
			s.logger.Info("parse progress", zap.Int("file", i), zap.Int("rows", res.Rows))
		}

		name := fmt.Sprintf("%d.html", i)
		if _, ok := done[name]; ok {
			res.Skipped++
			continue
		}

		raw, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			res.Missing++
			continue
		}
		if err != nil {
			s.logger.Warn("read case page failed", zap.String("file", name), zap.Error(err))
			metrics.FilesProcessed.WithLabelValues(statusFailed).Inc()
			res.Failed++
			continue
		}

		n, status, err := s.parseOne(name, string(raw))
		if err != nil {
			return res, err
		}
		if status == statusFailed {
			res.Failed++
			continue
		}
		res.Files++
		res.Rows += n
		switch status {
		case storage.FileCancelled:
			res.Cancelled++
		case storage.FileEmpty:
			res.Empty++
		}
	}

	if err := s.db.InsertRun(uuid.NewString(), "parse", res.counts()); err != nil {
		return res, err
	}
	s.logger.Info("parse finished",
		zap.Int("files", res.Files),
		zap.Int("rows", res.Rows),
		zap.Int("skipped", res.Skipped),
		zap.Int("missing", res.Missing),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// ParseFile parses and records one page under its base name.
func (s *ParseService) ParseFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	n, _, err := s.parseOne(filepath.Base(path), string(raw))
	return n, err
}

func (s *ParseService) parseOne(name, page string) (int, string, error) {
	rows, err := extract.ParseDosar(page)
	if err != nil {
		s.logger.Warn("parse case page failed", zap.String("file", name), zap.Error(err))
		metrics.FilesProcessed.WithLabelValues(statusFailed).Inc()
		return 0, statusFailed, nil
	}

	status := storage.FileParsed
	switch {
	case extract.IsCancelled(page):
		status = storage.FileCancelled
	case len(rows) == 0:
		status = storage.FileEmpty
	}

	if err := s.db.RecordFile(name, status, rows); err != nil {
		return 0, "", fmt.Errorf("store %s: %w", name, err)
	}
	metrics.FilesProcessed.WithLabelValues(status).Inc()
	metrics.RowsStored.Add(float64(len(rows)))
	return len(rows), status, nil
}
