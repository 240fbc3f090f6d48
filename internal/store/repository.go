// Package store maps spreadsheet tabs to rows keyed by an id column and
// routes every call through the data-access façade.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/minimonday/backend/internal/facade"
	"github.com/onnwee/minimonday/backend/internal/logger"
	"github.com/onnwee/minimonday/backend/internal/sheets"
)

// Façade endpoints; each gets its own circuit breaker.
const (
	EndpointRead  = "sheets.read"
	EndpointWrite = "sheets.write"
)

// Reserved columns.
const (
	IDColumn      = "id"
	VersionColumn = "updatedAt"
	ScopeColumn   = "scope"
)

// ScopeAll disables scope filtering.
const ScopeAll = "all"

var (
	ErrNotFound     = errors.New("row not found")
	ErrInvalidSheet = errors.New("invalid sheet name")
	ErrInvalidRow   = errors.New("invalid row")
	ErrNoHeader     = &tabError{msg: "sheet has no header row"}
)

// tabError describes a tab that cannot be used as a table. It carries a 4xx
// status so the read breaker and the retry policy treat it as a bad request
// rather than a backend failure.
type tabError struct{ msg string }

func (e *tabError) Error() string   { return e.msg }
func (e *tabError) HTTPStatus() int { return http.StatusUnprocessableEntity }

var sheetNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _-]{0,99}$`)

// Row is one spreadsheet row keyed by header name.
type Row map[string]string

// Query narrows a List call.
type Query struct {
	Scope   string            // matches the scope column; "" or "all" for every row
	Filters map[string]string // column name to exact value
}

func (q Query) scope() string {
	if q.Scope == "" {
		return ScopeAll
	}
	return q.Scope
}

// SheetsAPI is the subset of the Sheets client the repository needs.
type SheetsAPI interface {
	Get(ctx context.Context, rng string) (sheets.ValueRange, error)
	Append(ctx context.Context, rng string, rows [][]string) (sheets.UpdateResult, error)
	Update(ctx context.Context, rng string, rows [][]string) (sheets.UpdateResult, error)
	Clear(ctx context.Context, rng string) error
}

// table is a parsed tab: header plus data rows in sheet order.
type table struct {
	header []string
	rows   []Row
}

// Repository reads and writes rows of any tab whose first row is a header.
type Repository struct {
	api    SheetsAPI
	facade facade.Facade
	now    func() time.Time
	log    *slog.Logger
}

// NewRepository creates a repository over api, guarded by f.
func NewRepository(api SheetsAPI, f facade.Facade) *Repository {
	return &Repository{
		api:    api,
		facade: f,
		now:    time.Now,
		log:    logger.WithComponent("store"),
	}
}

// List returns the rows of sheet matching q. Results are cached per query shape.
func (r *Repository) List(ctx context.Context, sheet string, q Query) ([]Row, error) {
	if err := validateSheet(sheet); err != nil {
		return nil, err
	}
	rows, err := facade.Fetch(ctx, r.facade, EndpointRead, QueryKey(sheet, q), func(ctx context.Context) ([]Row, error) {
		t, err := r.load(ctx, sheet)
		if err != nil {
			return nil, err
		}
		return filterRows(t.rows, q), nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", sheet, err)
	}
	return cloneRows(rows), nil
}

// Get returns one row by id.
func (r *Repository) Get(ctx context.Context, sheet, id string) (Row, error) {
	if err := validateSheet(sheet); err != nil {
		return nil, err
	}
	row, err := facade.Fetch(ctx, r.facade, EndpointRead, RowKey(sheet, id), func(ctx context.Context) (Row, error) {
		t, err := r.load(ctx, sheet)
		if err != nil {
			return nil, err
		}
		// a missing row is cached as nil rather than failing the fetch,
		// so lookups of unknown ids do not count against the breaker
		_, row, _ := t.find(id)
		return row, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", sheet, id, err)
	}
	if row == nil {
		return nil, fmt.Errorf("get %s/%s: %w", sheet, id, ErrNotFound)
	}
	return cloneRow(row), nil
}

// Append adds a row, assigning an id when absent and stamping its version.
// Columns not present in the header are rejected.
func (r *Repository) Append(ctx context.Context, sheet string, row Row) (Row, error) {
	if err := validateSheet(sheet); err != nil {
		return nil, err
	}
	t, err := r.loadFresh(ctx, sheet)
	if err != nil {
		return nil, fmt.Errorf("append %s: %w", sheet, err)
	}
	if err := t.checkColumns(row); err != nil {
		return nil, err
	}

	out := cloneRow(row)
	if out[IDColumn] == "" {
		out[IDColumn] = uuid.NewString()
	} else if _, _, exists := t.find(out[IDColumn]); exists {
		return nil, fmt.Errorf("%w: id %q already exists", ErrInvalidRow, out[IDColumn])
	}
	out[VersionColumn] = r.version()

	var res sheets.UpdateResult
	err = r.facade.Execute(ctx, EndpointWrite, func(ctx context.Context) error {
		var err error
		res, err = r.api.Append(ctx, sheetRange(sheet, "A1"), [][]string{t.values(out)})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("append %s: %w", sheet, err)
	}
	r.log.DebugContext(ctx, "row appended", "sheet", sheet, "id", out[IDColumn], "row", rowNumberFromRange(res.UpdatedRange))
	r.invalidate(sheet)
	return out, nil
}

// Update merges fields into the row with id after a version check against
// expectedVersion (see CheckVersion). The id column cannot be changed.
func (r *Repository) Update(ctx context.Context, sheet, id string, fields Row, expectedVersion string) (Row, error) {
	if err := validateSheet(sheet); err != nil {
		return nil, err
	}
	if v, ok := fields[IDColumn]; ok && v != id {
		return nil, fmt.Errorf("%w: id cannot be changed", ErrInvalidRow)
	}

	t, index, current, err := r.current(ctx, sheet, id)
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", sheet, id, err)
	}
	if err := t.checkColumns(fields); err != nil {
		return nil, err
	}
	if err := CheckVersion(current, expectedVersion); err != nil {
		return nil, err
	}

	out := cloneRow(current)
	for k, v := range fields {
		out[k] = v
	}
	out[VersionColumn] = r.version()

	rowNumber := index + 2 // 1-based, after the header
	rng := sheetRange(sheet, fmt.Sprintf("A%d:%s%d", rowNumber, columnName(len(t.header)), rowNumber))
	err = r.facade.Execute(ctx, EndpointWrite, func(ctx context.Context) error {
		_, err := r.api.Update(ctx, rng, [][]string{t.values(out)})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", sheet, id, err)
	}
	r.invalidate(sheet)
	return out, nil
}

// Delete clears the row with id. The emptied row stays in the sheet and is
// skipped by reads.
func (r *Repository) Delete(ctx context.Context, sheet, id, expectedVersion string) error {
	if err := validateSheet(sheet); err != nil {
		return err
	}
	t, index, current, err := r.current(ctx, sheet, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", sheet, id, err)
	}
	if err := CheckVersion(current, expectedVersion); err != nil {
		return err
	}

	rowNumber := index + 2
	rng := sheetRange(sheet, fmt.Sprintf("A%d:%s%d", rowNumber, columnName(len(t.header)), rowNumber))
	err = r.facade.Execute(ctx, EndpointWrite, func(ctx context.Context) error {
		return r.api.Clear(ctx, rng)
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", sheet, id, err)
	}
	r.invalidate(sheet)
	return nil
}

// current re-reads the sheet bypassing the cache and locates id.
func (r *Repository) current(ctx context.Context, sheet, id string) (*table, int, Row, error) {
	t, err := r.loadFresh(ctx, sheet)
	if err != nil {
		return nil, 0, nil, err
	}
	index, row, ok := t.find(id)
	if !ok {
		return nil, 0, nil, ErrNotFound
	}
	return t, index, row, nil
}

// loadFresh reads the sheet through the read breaker without touching the cache.
func (r *Repository) loadFresh(ctx context.Context, sheet string) (*table, error) {
	var t *table
	err := r.facade.Execute(ctx, EndpointRead, func(ctx context.Context) error {
		var err error
		t, err = r.load(ctx, sheet)
		return err
	})
	return t, err
}

func (r *Repository) load(ctx context.Context, sheet string) (*table, error) {
	vr, err := r.api.Get(ctx, sheetRange(sheet, ""))
	if err != nil {
		return nil, err
	}
	return parseTable(vr.Values)
}

func (r *Repository) invalidate(sheet string) {
	n := r.facade.Invalidate(ResourcePrefix(sheet))
	r.log.Debug("invalidated cached queries", "sheet", sheet, "entries", n)
}

func (r *Repository) version() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

func parseTable(values [][]string) (*table, error) {
	if len(values) == 0 {
		return nil, ErrNoHeader
	}
	header := make([]string, len(values[0]))
	hasID := false
	for i, h := range values[0] {
		header[i] = strings.TrimSpace(h)
		if header[i] == IDColumn {
			hasID = true
		}
	}
	if !hasID {
		return nil, fmt.Errorf("%w: missing %q column", ErrNoHeader, IDColumn)
	}

	t := &table{header: header, rows: make([]Row, 0, len(values)-1)}
	for _, raw := range values[1:] {
		row := make(Row, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(raw) {
				row[name] = raw[i]
			} else {
				row[name] = ""
			}
		}
		// cleared rows keep their slot so row numbers stay aligned
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func (t *table) find(id string) (int, Row, bool) {
	if id == "" {
		return 0, nil, false
	}
	for i, row := range t.rows {
		if row[IDColumn] == id {
			return i, row, true
		}
	}
	return 0, nil, false
}

func (t *table) checkColumns(row Row) error {
	known := make(map[string]bool, len(t.header))
	for _, h := range t.header {
		known[h] = true
	}
	for k := range row {
		if !known[k] {
			return fmt.Errorf("%w: unknown column %q", ErrInvalidRow, k)
		}
	}
	return nil
}

func (t *table) values(row Row) []string {
	out := make([]string, len(t.header))
	for i, name := range t.header {
		out[i] = row[name]
	}
	return out
}

func filterRows(rows []Row, q Query) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if row[IDColumn] == "" {
			continue
		}
		if s := q.scope(); s != ScopeAll && row[ScopeColumn] != s {
			continue
		}
		match := true
		for k, v := range q.Filters {
			if row[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, row)
		}
	}
	return out
}

func validateSheet(sheet string) error {
	if !sheetNamePattern.MatchString(sheet) {
		return fmt.Errorf("%w: %q", ErrInvalidSheet, sheet)
	}
	return nil
}

// sheetRange builds an A1 range; an empty cells part selects the whole tab.
func sheetRange(sheet, cells string) string {
	quoted := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return quoted + "!" + cells
}

// columnName converts a 1-based column index to A1 letters (1=A, 27=AA).
func columnName(n int) string {
	if n < 1 {
		return "A"
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

func cloneRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		out[i] = cloneRow(row)
	}
	return out
}

// rowNumberFromRange extracts the first row number from an A1 range such as
// "'Tasks'!A5:C5"; 0 when absent.
func rowNumberFromRange(rng string) int {
	if i := strings.LastIndexByte(rng, '!'); i >= 0 {
		rng = rng[i+1:]
	}
	start := strings.IndexFunc(rng, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		return 0
	}
	end := start
	for end < len(rng) && rng[end] >= '0' && rng[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(rng[start:end])
	return n
}
