package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"ortkod/internal"
	"ortkod/internal/logging"
	"ortkod/internal/refsheet"
)

var ErrOverridesUnavailable = errors.Base("override tables unavailable")

// OverrideSource provides the operator-maintained tables for one run.
type OverrideSource interface {
	FetchRules(ctx context.Context) ([]internal.Rule, error)
	FetchManualAbbreviations(ctx context.Context) ([]internal.ManualAbbreviation, error)
	FetchOrderReplacements(ctx context.Context) ([]internal.OrderReplacement, error)
	FetchExclusions(ctx context.Context) ([]string, error)
}

type ReferenceLoader interface {
	Load(ctx context.Context) (*refsheet.Index, error)
}

type RunRecorder interface {
	InsertRun(ctx context.Context, traceID string, timings map[string]float64, counts map[string]int) error
}

type Service struct {
	overrides OverrideSource
	reference ReferenceLoader
	runs      RunRecorder
	logger    *zap.Logger
}

func NewService(overrides OverrideSource, reference ReferenceLoader, runs RunRecorder, logger *zap.Logger) *Service {
	return &Service{overrides: overrides, reference: reference, runs: runs, logger: logging.OrNop(logger)}
}

type Result struct {
	Groups      Groups
	InvalidRows []internal.InvalidRowReport
	CodeCheck   internal.CodeCheckResult
}

type Output struct {
	Result
	TraceID  string
	Workbook []byte
}

type snapshot struct {
	rules        []internal.Rule
	manual       []internal.ManualAbbreviation
	replacements []internal.OrderReplacement
	exclusions   []string
}

type referenceResult struct {
	index *refsheet.Index
	err   error
}

// ProcessSpreadsheet runs rows through the override snapshot and rule set, groups
// them by the selected Orts and checks the derived codes. The reference list is
// loaded alongside the snapshot; its failure only marks the code check unsuccessful.
func (s *Service) ProcessSpreadsheet(ctx context.Context, rows []internal.InputRow, selectedOrts []string) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	refCh := make(chan referenceResult, 1)
	go func() {
		if s.reference == nil {
			refCh <- referenceResult{err: errors.WithStack(refsheet.ErrCredentialsMissing)}
			return
		}
		idx, err := s.reference.Load(ctx)
		refCh <- referenceResult{index: idx, err: err}
	}()

	snap, err := s.fetchSnapshot(ctx)
	if err != nil {
		return Result{}, err
	}

	proc := NewRowProcessor(
		CompileRules(snap.rules, s.logger),
		NewResolver(snap.manual, snap.replacements, snap.exclusions),
	)
	groups, invalid := Aggregate(rows, selectedOrts, proc)
	if err := ctx.Err(); err != nil {
		return Result{}, errors.WithStack(err)
	}

	codes := groups.Codes()
	var ref referenceResult
	select {
	case <-ctx.Done():
		return Result{}, errors.WithStack(ctx.Err())
	case ref = <-refCh:
	}

	var check internal.CodeCheckResult
	if ref.err != nil {
		s.logger.Warn("code check skipped",
			zap.Int("codes", len(codes)),
			zap.Bool("credentials_missing", errors.Is(ref.err, refsheet.ErrCredentialsMissing)),
			zap.Error(ref.err),
		)
		check = refsheet.FailOpen(codes, ref.err)
	} else {
		check = ref.index.Check(codes)
	}

	return Result{Groups: groups, InvalidRows: invalid, CodeCheck: check}, nil
}

func (s *Service) fetchSnapshot(ctx context.Context) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.rules, err = s.overrides.FetchRules(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.manual, err = s.overrides.FetchManualAbbreviations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.replacements, err = s.overrides.FetchOrderReplacements(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.exclusions, err = s.overrides.FetchExclusions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, errors.Errorf("%w: %w", ErrOverridesUnavailable, err)
	}
	return snap, nil
}

// ProcessUpload reads an uploaded workbook, processes it and renders the output.
// Nothing is recorded unless the whole run completes.
func (s *Service) ProcessUpload(ctx context.Context, content []byte, selectedOrts []string) (Output, error) {
	start := time.Now()
	rows, err := ReadRows(content)
	if err != nil {
		return Output{}, err
	}
	readDone := time.Now()

	res, err := s.ProcessSpreadsheet(ctx, rows, selectedOrts)
	if err != nil {
		return Output{}, err
	}
	processDone := time.Now()

	workbook, err := WorkbookBytes(res.Groups, res.InvalidRows, res.CodeCheck)
	if err != nil {
		return Output{}, err
	}
	if err := ctx.Err(); err != nil {
		return Output{}, errors.WithStack(err)
	}

	out := Output{Result: res, TraceID: uuid.NewString(), Workbook: workbook}
	s.recordRun(ctx, out, len(rows), map[string]float64{
		"readMs":    msSince(start, readDone),
		"processMs": msSince(readDone, processDone),
		"composeMs": msSince(processDone, time.Now()),
		"totalMs":   msSince(start, time.Now()),
	})
	return out, nil
}

func (s *Service) recordRun(ctx context.Context, out Output, rowCount int, timings map[string]float64) {
	if s.runs == nil {
		return
	}
	counts := map[string]int{
		"rows":       rowCount,
		"valid":      out.Groups.Len(),
		"invalid":    len(out.InvalidRows),
		"missing":    out.CodeCheck.MissingCount,
		"unapproved": out.CodeCheck.UnapprovedCount,
	}
	if err := s.runs.InsertRun(ctx, out.TraceID, timings, counts); err != nil {
		s.logger.Warn("failed to record run", zap.String("trace_id", out.TraceID), zap.Error(err))
	}
}

func msSince(from, to time.Time) float64 {
	return float64(to.Sub(from).Microseconds()) / 1000
}
