package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/onnwee/minimonday/backend/internal/sheets"
)

// fakeSheets is an in-memory single-tab spreadsheet.
type fakeSheets struct {
	mu      sync.Mutex
	values  [][]string
	gets    int
	getErr  error
	lastRng string
}

func newFakeSheets(values ...[]string) *fakeSheets {
	return &fakeSheets{values: values}
}

func (f *fakeSheets) Get(ctx context.Context, rng string) (sheets.ValueRange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return sheets.ValueRange{}, f.getErr
	}
	out := make([][]string, len(f.values))
	for i, r := range f.values {
		out[i] = append([]string(nil), r...)
	}
	return sheets.ValueRange{Range: rng, Values: out}, nil
}

func (f *fakeSheets) Append(ctx context.Context, rng string, rows [][]string) (sheets.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRng = rng
	f.values = append(f.values, rows...)
	n := len(f.values)
	return sheets.UpdateResult{UpdatedRange: fmt.Sprintf("%s!A%d", strings.Split(rng, "!")[0], n), UpdatedRows: len(rows)}, nil
}

func (f *fakeSheets) Update(ctx context.Context, rng string, rows [][]string) (sheets.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRng = rng
	n := rowNumberFromRange(rng)
	f.values[n-1] = rows[0]
	return sheets.UpdateResult{UpdatedRange: rng, UpdatedRows: 1}, nil
}

func (f *fakeSheets) Clear(ctx context.Context, rng string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRng = rng
	n := rowNumberFromRange(rng)
	f.values[n-1] = make([]string, len(f.values[n-1]))
	return nil
}

func (f *fakeSheets) setCell(row, col int, v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[row][col] = v
}

func (f *fakeSheets) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

// tabbedSheets serves each tab from its own fakeSheets. Unknown tabs fail the
// way the Sheets API does for a range it cannot parse.
type tabbedSheets map[string]*fakeSheets

func (t tabbedSheets) tab(rng string) (*fakeSheets, error) {
	name := strings.Trim(strings.Split(rng, "!")[0], "'")
	if f, ok := t[name]; ok {
		return f, nil
	}
	return nil, &sheets.APIError{Type: sheets.ErrorBadRequest, StatusCode: 400, Message: "Unable to parse range: " + rng}
}

func (t tabbedSheets) Get(ctx context.Context, rng string) (sheets.ValueRange, error) {
	f, err := t.tab(rng)
	if err != nil {
		return sheets.ValueRange{}, err
	}
	return f.Get(ctx, rng)
}

func (t tabbedSheets) Append(ctx context.Context, rng string, rows [][]string) (sheets.UpdateResult, error) {
	f, err := t.tab(rng)
	if err != nil {
		return sheets.UpdateResult{}, err
	}
	return f.Append(ctx, rng, rows)
}

func (t tabbedSheets) Update(ctx context.Context, rng string, rows [][]string) (sheets.UpdateResult, error) {
	f, err := t.tab(rng)
	if err != nil {
		return sheets.UpdateResult{}, err
	}
	return f.Update(ctx, rng, rows)
}

func (t tabbedSheets) Clear(ctx context.Context, rng string) error {
	f, err := t.tab(rng)
	if err != nil {
		return err
	}
	return f.Clear(ctx, rng)
}
