// Package sourcemetrics computes live source statistics for the diagnostics
// report: blank, comment and code line counts across the project's own
// source tree, and how many commands it declares.
//
// A command is declared by a marker comment on the line above its handler,
// for example:
//
//	//arcbot:command
//	func (h *Handler) ping(ctx context.Context, inv Invocation) error {
package sourcemetrics

import (
	"bytes"
	"context"
	"io/fs"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	arcerrors "github.com/vesaa/arcbot/internal/errors"
)

// Metrics is the scan result for a whole tree.
type Metrics struct {
	Counts
	Commands uint64 `json:"commands"`
	Files    uint64 `json:"files"`
}

// Scanner walks a source tree and accumulates Metrics.
type Scanner struct {
	Marker  string
	Workers int

	log *zap.Logger
}

// NewScanner creates a Scanner counting marker with at most workers files
// in flight.
func NewScanner(marker string, workers int, log *zap.Logger) *Scanner {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{Marker: marker, Workers: workers, log: log.Named("sourcemetrics")}
}

// Scan visits every regular file under fsys. Any file that cannot be read
// fails the whole scan and no partial totals are returned. Files are
// processed concurrently; totals do not depend on visiting order.
func (s *Scanner) Scan(ctx context.Context, fsys fs.FS) (Metrics, error) {
	start := time.Now()

	var (
		mu    sync.Mutex
		total Metrics
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Workers)

	walkErr := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return arcerrors.WrapWithContext(arcerrors.ErrCodeScanFailure,
				"walking source tree", err, map[string]any{"path": name})
		}
		// yield point: stop walking once the scan is abandoned
		if err := gctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := s.scanFile(fsys, name)
			if err != nil {
				return err
			}
			mu.Lock()
			total.Add(m.Counts)
			total.Commands += m.Commands
			total.Files++
			mu.Unlock()
			return nil
		})
		return nil
	})

	// Always drain the workers before returning.
	groupErr := g.Wait()
	if walkErr != nil {
		if groupErr != nil && arcerrors.CodeOf(walkErr) == "" {
			return Metrics{}, groupErr
		}
		return Metrics{}, walkErr
	}
	if groupErr != nil {
		return Metrics{}, groupErr
	}

	s.log.Debug("source tree scanned",
		zap.Uint64("files", total.Files),
		zap.Uint64("lines", total.Lines),
		zap.Uint64("commands", total.Commands),
		zap.Duration("took", time.Since(start)))
	return total, nil
}

func (s *Scanner) scanFile(fsys fs.FS, name string) (Metrics, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Metrics{}, arcerrors.WrapWithContext(arcerrors.ErrCodeScanFailure,
			"reading source file", err, map[string]any{"path": name})
	}
	counts, err := Classify(bytes.NewReader(data), SyntaxFor(name))
	if err != nil {
		return Metrics{}, arcerrors.WrapWithContext(arcerrors.ErrCodeScanFailure,
			"classifying source file", err, map[string]any{"path": name})
	}
	return Metrics{Counts: counts, Commands: CountMarker(data, s.Marker)}, nil
}
