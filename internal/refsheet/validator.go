package refsheet

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gitlab.com/tozd/go/errors"

	"ortkod/internal"
	"ortkod/internal/logging"
)

// Source yields the raw reference table.
type Source interface {
	FetchReferenceCodeTable(ctx context.Context) ([][]string, error)
}

// Validator loads the reference list under a bounded timeout and fails open when
// it cannot be read.
type Validator struct {
	source  Source
	timeout time.Duration
	logger  *zap.Logger
}

func NewValidator(source Source, timeout time.Duration, logger *zap.Logger) *Validator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Validator{source: source, timeout: timeout, logger: logging.OrNop(logger)}
}

// Load fetches and indexes the reference table.
func (v *Validator) Load(ctx context.Context) (*Index, error) {
	if v.source == nil {
		return nil, errors.WithStack(ErrCredentialsMissing)
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	rows, err := v.source.FetchReferenceCodeTable(ctx)
	if err != nil {
		return nil, err
	}
	return BuildIndex(rows), nil
}

func (v *Validator) CheckCodes(ctx context.Context, codes []string) internal.CodeCheckResult {
	idx, err := v.Load(ctx)
	if err != nil {
		v.logger.Warn("reference check failed, continuing without it",
			zap.Int("codes", len(codes)),
			zap.Error(err),
		)
		return FailOpen(codes, err)
	}
	return idx.Check(codes)
}

// FailOpen is the result reported when the reference list could not be consulted.
func FailOpen(codes []string, err error) internal.CodeCheckResult {
	res := internal.CodeCheckResult{
		Success:         false,
		MissingCodes:    []string{},
		UnapprovedCodes: []string{},
		TotalChecked:    len(codes),
		ExistingCount:   len(codes),
	}
	if err != nil {
		res.Error = err.Error()
		res.CredentialsError = errors.Is(err, ErrCredentialsMissing)
	}
	return res
}

// Unavailable is a Source that always fails with err. It stands in when the
// client could not be built at startup.
type Unavailable struct {
	Err error
}

func (u Unavailable) FetchReferenceCodeTable(context.Context) ([][]string, error) {
	return nil, u.Err
}
