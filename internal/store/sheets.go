package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	logx "marchbot/pkg/logx"
)

// SheetsConfig configures the Google Sheets backed TableAPI.
type SheetsConfig struct {
	// SpreadsheetID is the game document. BagSpreadsheetID is the shop
	// document holding the inventory matrix; empty routes the bag worksheet
	// to the game document too.
	SpreadsheetID    string
	BagSpreadsheetID string
	BagWorksheet     string

	CredentialsFile string

	CacheTTL time.Duration // table snapshot TTL, default 3s
	Retry    BackoffPolicy
}

// SheetsClient implements TableAPI against the Sheets v4 API with a short-TTL
// snapshot cache and bounded retry on transient faults. Writes invalidate the
// affected worksheet's snapshot immediately after success.
type SheetsClient struct {
	cfg   SheetsConfig
	log   logx.Logger
	svc   *sheets.Service
	cache *snapshotCache
}

func NewSheetsClient(ctx context.Context, cfg SheetsConfig, log logx.Logger) (*SheetsClient, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 3 * time.Second
	}

	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsClient{
		cfg:   cfg,
		log:   log,
		svc:   svc,
		cache: newSnapshotCache(ttl),
	}, nil
}

// spreadsheetFor routes the bag worksheet to the shop document.
func (c *SheetsClient) spreadsheetFor(ws string) string {
	if ws == c.cfg.BagWorksheet && strings.TrimSpace(c.cfg.BagSpreadsheetID) != "" {
		return c.cfg.BagSpreadsheetID
	}
	return c.cfg.SpreadsheetID
}

func (c *SheetsClient) ReadAll(ctx context.Context, ws string) ([][]string, error) {
	if vals, ok := c.cache.Get(ws); ok {
		return vals, nil
	}

	var resp *sheets.ValueRange
	err := callWithRetry(ctx, c.log, "read:"+ws, c.cfg.Retry, func(ctx context.Context) error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.
			Get(c.spreadsheetFor(ws), quoteRange(ws, "")).
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", ws, err)
	}

	vals := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		r := make([]string, len(row))
		for i, v := range row {
			r[i] = fmt.Sprint(v)
		}
		vals = append(vals, r)
	}
	c.cache.Put(ws, vals)
	return vals, nil
}

func (c *SheetsClient) UpdateCell(ctx context.Context, ws string, row, col int, value string) error {
	if row < 1 || col < 1 {
		return NoRetry(fmt.Errorf("update %q: invalid cell (%d,%d)", ws, row, col))
	}
	rng := quoteRange(ws, fmt.Sprintf("%s%d", colLetter(col), row))
	vr := &sheets.ValueRange{Values: [][]any{{value}}}

	err := callWithRetry(ctx, c.log, "update:"+ws, c.cfg.Retry, func(ctx context.Context) error {
		_, err := c.svc.Spreadsheets.Values.
			Update(c.spreadsheetFor(ws), rng, vr).
			ValueInputOption("USER_ENTERED").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("update %q: %w", ws, err)
	}
	c.cache.Invalidate(ws)
	return nil
}

func (c *SheetsClient) AppendRow(ctx context.Context, ws string, cells []string) error {
	row := make([]any, len(cells))
	for i, v := range cells {
		row[i] = v
	}
	vr := &sheets.ValueRange{Values: [][]any{row}}

	err := callWithRetry(ctx, c.log, "append:"+ws, c.cfg.Retry, func(ctx context.Context) error {
		_, err := c.svc.Spreadsheets.Values.
			Append(c.spreadsheetFor(ws), quoteRange(ws, "A1"), vr).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("append %q: %w", ws, err)
	}
	c.cache.Invalidate(ws)
	return nil
}

// quoteRange builds an A1 range with the worksheet title quoted, since the
// titles contain non-ASCII characters.
func quoteRange(ws, a1 string) string {
	t := strings.ReplaceAll(ws, "'", "''")
	if a1 == "" {
		return "'" + t + "'"
	}
	return "'" + t + "'!" + a1
}

// colLetter converts a 1-based column index to its A1 letter form.
func colLetter(col int) string {
	s := ""
	for col > 0 {
		col--
		s = string(rune('A'+col%26)) + s
		col /= 26
	}
	return s
}

// interface guard
var _ TableAPI = (*SheetsClient)(nil)
