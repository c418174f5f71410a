package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"restituiri/internal"
	"restituiri/internal/address"
	"restituiri/internal/metrics"
	"restituiri/internal/storage"
	"restituiri/internal/util"
)

// CitySuffix narrows second-pass lookups to the city.
const CitySuffix = ", București, România"

const reprocessMark = "reprocess:"

// Geocoder is the lookup the geocoding stage depends on.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*internal.GeocodeResult, error)
}

type GeocodeService struct {
	db       *storage.DB
	geocoder Geocoder
	logger   *zap.Logger
}

func NewGeocodeService(db *storage.DB, geocoder Geocoder, logger *zap.Logger) *GeocodeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeocodeService{db: db, geocoder: geocoder, logger: logger}
}

type GeocodeStats struct {
	Found    int
	NotFound int
	Empty    int
	Failed   int
}

func (g *GeocodeStats) add(status internal.GeocodeStatus) {
	switch status {
	case internal.GeocodeFound:
		g.Found++
	case internal.GeocodeNotFound:
		g.NotFound++
	case internal.GeocodeEmpty:
		g.Empty++
	case internal.GeocodeError:
		g.Failed++
	}
	metrics.GeocodeRequests.WithLabelValues(string(status)).Inc()
}

func (g GeocodeStats) counts() map[string]int {
	return map[string]int{"found": g.Found, "notFound": g.NotFound, "empty": g.Empty, "failed": g.Failed}
}

// Run geocodes up to limit rows without an outcome or with a failed one (all of them when limit <= 0).
// Each outcome is stored before the next lookup, so a cancelled run resumes cleanly.
func (s *GeocodeService) Run(ctx context.Context, limit int) (GeocodeStats, error) {
	pending, err := s.db.PendingGeocodes(limit)
	if err != nil {
		return GeocodeStats{}, fmt.Errorf("load pending rows: %w", err)
	}

	var stats GeocodeStats
	for _, c := range pending {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		row := internal.GeocodeRow{CaseID: c.ID}
		raw := strings.TrimSpace(util.Deref(c.Record.Address.Contemporary))
		if raw == "" {
			row.Status = internal.GeocodeEmpty
			s.logger.Info("empty address", zap.Int64("row", c.ID))
		} else {
			norm := address.NormalizeDetailed(raw)
			row.Query = norm.Address
			if err := s.lookup(ctx, &row, addressFields(norm)...); err != nil {
				return stats, err
			}
		}

		if err := s.db.UpsertGeocode(row); err != nil {
			return stats, fmt.Errorf("store geocode for row %d: %w", c.ID, err)
		}
		stats.add(row.Status)
	}

	if err := s.db.InsertRun(uuid.NewString(), "geocode", stats.counts()); err != nil {
		return stats, err
	}
	return stats, nil
}

// Reprocess gives not-found rows a second chance: the stored query is cleaned up and
// retried with the city suffix. Every attempt is marked so it is not repeated.
func (s *GeocodeService) Reprocess(ctx context.Context) (GeocodeStats, error) {
	rows, err := s.db.GeocodesByStatus(internal.GeocodeNotFound)
	if err != nil {
		return GeocodeStats{}, fmt.Errorf("load not-found rows: %w", err)
	}

	var stats GeocodeStats
	for _, prev := range rows {
		if strings.HasPrefix(util.Deref(prev.Detail), reprocessMark) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		query, ok := reprocessQuery(prev.CaseID, prev.Query)
		if !ok {
			continue
		}

		row := internal.GeocodeRow{CaseID: prev.CaseID, Query: query}
		if err := s.lookup(ctx, &row); err != nil {
			return stats, err
		}
		switch row.Status {
		case internal.GeocodeFound:
			row.Detail = util.StringPtr(reprocessMark + "done")
		case internal.GeocodeError:
			row.Detail = util.StringPtr(reprocessMark + "error: " + util.Deref(row.Detail))
		default:
			row.Detail = util.StringPtr(reprocessMark + "fail")
		}
		if row.Status != internal.GeocodeFound {
			// the first-pass query stays listed as not found
			row.Query = prev.Query
			row.Status = internal.GeocodeNotFound
		}
		if err := s.db.UpsertGeocode(row); err != nil {
			return stats, fmt.Errorf("store geocode for row %d: %w", row.CaseID, err)
		}
		stats.add(row.Status)
	}

	if err := s.db.InsertRun(uuid.NewString(), "reprocess", stats.counts()); err != nil {
		return stats, err
	}
	return stats, nil
}

// reprocessQuery runs a not-found line through the cleanup stage and the normalizer, then
// swaps the bare city token for the full city suffix.
func reprocessQuery(caseID int64, query string) (string, bool) {
	_, addr, ok := address.ParseNotFoundLine(address.CleanupNotFound(NotFoundLine(caseID, query)))
	if !ok || addr == "" {
		return "", false
	}
	normalized := address.Normalize(addr)
	if strings.HasSuffix(strings.ToLower(normalized), address.City) {
		normalized = strings.TrimSpace(normalized[:len(normalized)-len(address.City)])
	}
	if normalized == "" {
		return "", false
	}
	return normalized + CitySuffix, true
}

// lookup fills the outcome of row.Query. Only context cancellation is returned as an
// error; lookup failures are recorded on the row.
func (s *GeocodeService) lookup(ctx context.Context, row *internal.GeocodeRow, extra ...zap.Field) error {
	res, err := s.geocoder.Geocode(ctx, row.Query)
	fields := append([]zap.Field{zap.Int64("row", row.CaseID), zap.String("query", row.Query)}, extra...)
	switch {
	case err != nil && ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		row.Status = internal.GeocodeError
		row.Detail = util.StringPtr(err.Error())
		s.logger.Warn("geocode failed", append(fields, zap.Error(err))...)
	case res == nil:
		row.Status = internal.GeocodeNotFound
		s.logger.Info("address not found", fields...)
	default:
		row.Status = internal.GeocodeFound
		row.Latitude = util.FloatPtr(res.Latitude)
		row.Longitude = util.FloatPtr(res.Longitude)
		s.logger.Debug("address found", append(fields,
			zap.Float64("lat", res.Latitude),
			zap.Float64("lon", res.Longitude))...)
	}
	return nil
}

// addressFields reports the normalizer markers worth checking by hand when a lookup
// misses: no street type, "nr FN", "FN(n)" and parcel numbers.
func addressFields(res address.Result) []zap.Field {
	fields := []zap.Field{zap.Bool("streetType", res.HasStreetType)}
	if res.Number != "" {
		fields = append(fields, zap.String("number", res.Number))
	}
	if res.NoNumber {
		fields = append(fields, zap.Bool("nrFN", true))
	}
	if res.FNNumber {
		fields = append(fields, zap.Bool("fnNumber", true))
	}
	if res.Parcel != "" {
		fields = append(fields, zap.String("parcel", res.Parcel))
	}
	return fields
}

// NotFoundLine renders a not-found row in the "Linia N: address" list format.
func NotFoundLine(caseID int64, query string) string {
	return fmt.Sprintf("Linia %d: %s", caseID, query)
}

// WriteNotFound lists the rows still not found, one "Linia N: address" line each.
func (s *GeocodeService) WriteNotFound(w io.Writer) (int, error) {
	rows, err := s.db.GeocodesByStatus(internal.GeocodeNotFound)
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriter(w)
	for _, r := range rows {
		if _, err := fmt.Fprintln(bw, NotFoundLine(r.CaseID, r.Query)); err != nil {
			return 0, err
		}
	}
	return len(rows), bw.Flush()
}
