package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/usestring/apirecord/pkg/recorder"
)

// Format selects how a capture file is read.
type Format string

const (
	// FormatAuto reads HAR archives by extension or shape and everything
	// else as exchange records.
	FormatAuto    Format = "auto"
	FormatHAR     Format = "har"
	FormatRecords Format = "records"
)

// DefaultWorkers bounds concurrent file parsing.
const DefaultWorkers = 4

// Options controls loading.
type Options struct {
	Format  Format
	Mapper  *Mapper // overrides Format when set
	Workers int
	Logger  *slog.Logger
}

// Stats summarises a load.
type Stats struct {
	Files     int `json:"files"`
	Exchanges int `json:"exchanges"`
	Recorded  int `json:"recorded"`
	Skipped   int `json:"skipped"`
}

// ParseFile reads one capture file into exchanges in file order.
func ParseFile(path string, opts Options) ([]recorder.Exchange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := opts.Format
	if format == "" || format == FormatAuto {
		if strings.EqualFold(filepath.Ext(path), ".har") {
			format = FormatHAR
		} else {
			format = FormatAuto
		}
	}
	exchanges, err := Parse(data, format, opts.Mapper)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return exchanges, nil
}

// Parse decodes capture data. A non-nil mapper takes precedence over format.
func Parse(data []byte, format Format, mapper *Mapper) ([]recorder.Exchange, error) {
	docs, err := decodeStream(data)
	if err != nil {
		return nil, err
	}

	var out []recorder.Exchange
	for i, doc := range docs {
		var records []Record
		switch {
		case mapper != nil:
			records, err = mapper.Map(doc)
		case format == FormatHAR || (format == FormatAuto && isHAR(doc)):
			var exchanges []recorder.Exchange
			exchanges, err = decodeHAR(doc)
			out = append(out, exchanges...)
		default:
			records, err = decodeRecords(doc)
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i+1, err)
		}

		for j := range records {
			ex, err := records[j].Exchange()
			if err != nil {
				return nil, fmt.Errorf("document %d, record %d: %w", i+1, j+1, err)
			}
			out = append(out, ex)
		}
	}
	return out, nil
}

// LoadFiles parses files concurrently and then records their exchanges
// sequentially, in argument order and file order, so conflict tie-breaks are
// reproducible. Exchanges the recorder rejects are logged and skipped.
func LoadFiles(ctx context.Context, rec *recorder.Recorder, paths []string, opts Options) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	parsed := make([][]recorder.Exchange, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			exchanges, err := ParseFile(path, opts)
			if err != nil {
				return err
			}
			parsed[i] = exchanges
			logger.Debug("capture parsed", slog.String("file", path), slog.Int("exchanges", len(exchanges)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	stats := Stats{Files: len(paths)}
	for i, exchanges := range parsed {
		for _, ex := range exchanges {
			stats.Exchanges++
			if _, err := rec.RecordExchange(ctx, ex); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return stats, err
				}
				stats.Skipped++
				logger.Warn("exchange skipped",
					slog.String("file", paths[i]),
					slog.String("method", ex.Method),
					slog.String("url", ex.URL),
					slog.String("error", err.Error()),
				)
				continue
			}
			stats.Recorded++
		}
	}
	return stats, nil
}
