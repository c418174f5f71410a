package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"restituiri/internal"
	"restituiri/internal/acts"
	"restituiri/internal/metrics"
	"restituiri/internal/storage"
	"restituiri/internal/util"
)

// ActFetcher resolves and saves the PDF for one download task.
type ActFetcher interface {
	Fetch(ctx context.Context, task internal.DownloadTask, dir string) (acts.FetchResult, error)
}

type ActsService struct {
	db      *storage.DB
	fetcher ActFetcher
	logger  *zap.Logger
}

func NewActsService(db *storage.DB, fetcher ActFetcher, logger *zap.Logger) *ActsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActsService{db: db, fetcher: fetcher, logger: logger}
}

// Plan lists the act downloads still outstanding for the stored cases.
func (s *ActsService) Plan() ([]internal.DownloadTask, error) {
	cases, err := s.db.ListCases()
	if err != nil {
		return nil, fmt.Errorf("load cases: %w", err)
	}
	finished, err := s.db.FinishedDownloads()
	if err != nil {
		return nil, fmt.Errorf("load download progress: %w", err)
	}
	done := func(k internal.DpgKey) bool {
		_, ok := finished[k]
		return ok
	}
	return acts.Plan(records(cases), done), nil
}

// FetchAll runs up to limit planned downloads (all when limit <= 0) into dir. Failures
// are recorded with status "error" and retried by the next run.
func (s *ActsService) FetchAll(ctx context.Context, dir string, limit int) (map[internal.DownloadStatus]int, error) {
	tasks, err := s.Plan()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	s.logger.Info("act downloads planned", zap.Int("tasks", len(tasks)))

	counts := map[internal.DownloadStatus]int{}
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return counts, err
		}

		res, err := s.fetcher.Fetch(ctx, task, dir)
		if err != nil && ctx.Err() != nil {
			return counts, ctx.Err()
		}
		var file, detail *string
		if res.File != "" {
			file = util.StringPtr(filepath.Base(res.File))
		}
		if err != nil {
			detail = util.StringPtr(err.Error())
			s.logger.Warn("act download failed",
				zap.String("dpg", task.Code),
				zap.String("date", task.ISODate),
				zap.Error(err))
		}
		if res.Status == "" {
			res.Status = internal.DownloadError
		}

		if err := s.db.RecordDownload(task, res.Status, file, detail); err != nil {
			return counts, fmt.Errorf("record download %s/%s: %w", task.Code, task.ISODate, err)
		}
		counts[res.Status]++
		metrics.ActDownloads.WithLabelValues(string(res.Status)).Inc()
		s.logger.Info("act processed",
			zap.Int("task", i+1),
			zap.Int("of", len(tasks)),
			zap.String("dosar", task.CaseNumber),
			zap.String("dpg", task.Code),
			zap.String("status", string(res.Status)))
	}

	runCounts := make(map[string]int, len(counts))
	for k, v := range counts {
		runCounts[string(k)] = v
	}
	if err := s.db.InsertRun(uuid.NewString(), "acts", runCounts); err != nil {
		return counts, err
	}
	return counts, nil
}

// LinkPDFs matches the PDFs in dir to the stored cases and replaces the stored links.
// It returns how many case rows received at least one PDF.
func (s *ActsService) LinkPDFs(dir string) (int, error) {
	names, err := ListPDFs(dir)
	if err != nil {
		return 0, err
	}
	cases, err := s.db.ListCases()
	if err != nil {
		return 0, fmt.Errorf("load cases: %w", err)
	}

	linked := acts.Link(records(cases), names)
	byCase := map[int64][]string{}
	for i, names := range linked {
		if len(names) > 0 {
			byCase[cases[i].ID] = names
		}
	}
	if err := s.db.ReplacePDFLinks(byCase); err != nil {
		return 0, fmt.Errorf("store pdf links: %w", err)
	}
	s.logger.Info("pdfs linked", zap.Int("files", len(names)), zap.Int("rows", len(byCase)))
	return len(byCase), nil
}

// ListPDFs returns the sorted names of the .pdf files directly inside dir. A missing
// directory holds no PDFs.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func records(cases []internal.StoredCase) []internal.CaseRecord {
	out := make([]internal.CaseRecord, len(cases))
	for i, c := range cases {
		out[i] = c.Record
	}
	return out
}
