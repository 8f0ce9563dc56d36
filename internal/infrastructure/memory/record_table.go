package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/ant-retail/attendance-bot/internal/core/domain"
)

// firstDataRow is the row number of the first record; row 1 is the header,
// as in a spreadsheet.
const firstDataRow = 2

// RecordTable is a flat attendance table with a header row and one row of
// text cells per record. Lookups are a linear scan over all rows, which is
// fine for the row counts of a single shop.
type RecordTable struct {
	mu   sync.RWMutex
	rows [][]string
}

func NewRecordTable() *RecordTable {
	header := make([]string, len(domain.Columns))
	for i, c := range domain.Columns {
		header[i] = string(c)
	}
	return &RecordTable{rows: [][]string{header}}
}

var columnIndex = func() map[domain.Column]int {
	idx := make(map[domain.Column]int, len(domain.Columns))
	for i, c := range domain.Columns {
		idx[c] = i
	}
	return idx
}()

func cell(row []string, c domain.Column) string {
	i := columnIndex[c]
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func matches(row []string, identity, date string) bool {
	return cell(row, domain.ColumnTelegramID) == identity && cell(row, domain.ColumnDate) == date
}

// find returns the 0-based slice index of the (identity, date) row, or -1.
// Callers hold the lock.
func (t *RecordTable) find(identity, date string) int {
	for i := 1; i < len(t.rows); i++ {
		if matches(t.rows[i], identity, date) {
			return i
		}
	}
	return -1
}

func handleFor(i int, identity, date string) domain.RecordHandle {
	return domain.RecordHandle{
		Ref:      strconv.Itoa(i + 1),
		Identity: identity,
		Date:     date,
	}
}

func (t *RecordTable) FindByIdentityAndDate(ctx context.Context, identity, date string) (*domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	i := t.find(identity, date)
	if i < 0 {
		return nil, domain.ErrRecordNotFound
	}
	rec := domain.RecordFromRow(t.rows[i])
	rec.Handle = handleFor(i, identity, date)
	return rec, nil
}

func (t *RecordTable) Append(ctx context.Context, rec *domain.Record) (domain.RecordHandle, error) {
	if err := ctx.Err(); err != nil {
		return domain.RecordHandle{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.find(rec.Identity, rec.Date) >= 0 {
		return domain.RecordHandle{}, domain.ErrRecordExists
	}
	t.rows = append(t.rows, rec.Row())
	h := handleFor(len(t.rows)-1, rec.Identity, rec.Date)
	rec.Handle = h
	return h, nil
}

// UpdateFields re-checks, under the write lock, that the row behind the
// handle still belongs to the handle's key before writing any cell.
func (t *RecordTable) UpdateFields(ctx context.Context, h domain.RecordHandle, fields domain.FieldSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := strconv.Atoi(h.Ref)
	if err != nil {
		return fmt.Errorf("record table: bad handle %q: %w", h.Ref, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i := n - 1
	if n < firstDataRow || i >= len(t.rows) || !matches(t.rows[i], h.Identity, h.Date) {
		return domain.ErrStaleHandle
	}
	row := t.rows[i]
	for c, v := range fields {
		ci, ok := columnIndex[c]
		if !ok {
			return fmt.Errorf("record table: unknown column %q", c)
		}
		for len(row) <= ci {
			row = append(row, "")
		}
		row[ci] = v
	}
	t.rows[i] = row
	return nil
}

func (t *RecordTable) ListByIdentity(ctx context.Context, identity string) ([]*domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*domain.Record
	for i := 1; i < len(t.rows); i++ {
		row := t.rows[i]
		if cell(row, domain.ColumnTelegramID) != identity {
			continue
		}
		rec := domain.RecordFromRow(row)
		rec.Handle = handleFor(i, identity, rec.Date)
		out = append(out, rec)
	}
	return out, nil
}

// Len returns the number of records, excluding the header.
func (t *RecordTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows) - 1
}
