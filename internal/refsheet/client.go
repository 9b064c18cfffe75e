package refsheet

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"ortkod/internal/config"
)

var (
	ErrReferenceUnavailable = errors.Base("reference list unavailable")
	ErrCredentialsMissing   = errors.Base("google sheets credentials not found")
)

// Client reads the approved-code list and appends import rows through the Sheets API.
type Client struct {
	service *sheets.Service

	referenceID    string
	referenceRange string
	importID       string
	importRange    string
	importErr      error

	pacer       *pacer
	maxAttempts int
	backoff     func(attempt int) time.Duration
}

// NewClient authenticates with the service account from GOOGLE_CREDENTIALS_BASE64
// or GOOGLE_CREDENTIALS_FILE.
func NewClient(ctx context.Context, cfg config.Config) (*Client, error) {
	raw, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, errors.Errorf("parse google credentials: %w", err)
	}
	return newClient(ctx, cfg, option.WithCredentials(creds))
}

func newClient(ctx context.Context, cfg config.Config, opts ...option.ClientOption) (*Client, error) {
	if err := cfg.Require("REFERENCE_SPREADSHEET_ID", cfg.ReferenceSpreadsheetID); err != nil {
		return nil, err
	}
	if err := cfg.Require("REFERENCE_RANGE", cfg.ReferenceRange); err != nil {
		return nil, err
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Errorf("create sheets service: %w", err)
	}
	return &Client{
		service:        svc,
		referenceID:    cfg.ReferenceSpreadsheetID,
		referenceRange: cfg.ReferenceRange,
		importID:       cfg.ImportSpreadsheetID,
		importRange:    cfg.ImportRange,
		importErr:      requireImport(cfg),
		pacer:          newPacer(cfg.SheetsRequestsPerSecond),
		maxAttempts:    4,
		backoff:        defaultBackoff,
	}, nil
}

// requireImport is checked on append only; reading the reference list works without it.
func requireImport(cfg config.Config) error {
	if err := cfg.Require("IMPORT_SPREADSHEET_ID", cfg.ImportSpreadsheetID); err != nil {
		return err
	}
	return cfg.Require("IMPORT_RANGE", cfg.ImportRange)
}

func loadCredentials(cfg config.Config) ([]byte, error) {
	if encoded := strings.TrimSpace(cfg.GoogleCredentialsBase64); encoded != "" {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, errors.Errorf("decode GOOGLE_CREDENTIALS_BASE64: %w", err)
		}
		return raw, nil
	}
	if strings.TrimSpace(cfg.GoogleCredentialsFile) == "" {
		return nil, errors.WithStack(ErrCredentialsMissing)
	}
	raw, err := os.ReadFile(cfg.GoogleCredentialsFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.WithStack(ErrCredentialsMissing)
	}
	if err != nil {
		return nil, errors.Errorf("read %s: %w", cfg.GoogleCredentialsFile, err)
	}
	return raw, nil
}

// FetchReferenceCodeTable returns the reference range as text cells. Every failure
// wraps ErrReferenceUnavailable.
func (c *Client) FetchReferenceCodeTable(ctx context.Context) ([][]string, error) {
	var resp *sheets.ValueRange
	err := c.retry(ctx, func() error {
		var err error
		resp, err = c.service.Spreadsheets.Values.Get(c.referenceID, c.referenceRange).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, errors.Errorf("%w: %w", ErrReferenceUnavailable, err)
	}

	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		out = append(out, cells)
	}
	return out, nil
}

// AppendRows appends rows below the import range and returns the updated range.
func (c *Client) AppendRows(ctx context.Context, rows [][]string) (string, error) {
	if c.importErr != nil {
		return "", c.importErr
	}
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}

	var resp *sheets.AppendValuesResponse
	err := c.retry(ctx, func() error {
		var err error
		resp, err = c.service.Spreadsheets.Values.
			Append(c.importID, c.importRange, &sheets.ValueRange{Values: values}).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return "", errors.Errorf("append import rows: %w", err)
	}
	if resp.Updates == nil {
		return "", nil
	}
	return resp.Updates.UpdatedRange, nil
}

func (c *Client) retry(ctx context.Context, call func() error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.pacer.wait(ctx); err != nil {
			return err
		}
		lastErr = call()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) || attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-time.After(c.backoff(attempt)):
		}
	}
	return errors.WithStack(lastErr)
}

func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func defaultBackoff(attempt int) time.Duration {
	return time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
}
