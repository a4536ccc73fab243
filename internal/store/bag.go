package store

import (
	"context"
	"strconv"
)

// The 가방 worksheet is a matrix: one column per user (header row), one row
// per item (first column). Cell (item, user) holds an integer quantity.
// Currency is just a reserved item key (설정: 통화키).

// bagUserCol finds (or creates) the 1-based column for handle.
func (r *Repo) bagUserCol(ctx context.Context, handle string) (int, error) {
	target := handle
	if r.withAtColumn {
		target = "@" + handle
	}
	vals, err := r.api.ReadAll(ctx, r.ws.Bag)
	if err != nil {
		return 0, err
	}
	var header []string
	if len(vals) > 0 {
		header = vals[0]
	}
	for i, name := range header {
		if trim(name) == target {
			return i + 1, nil
		}
	}
	next := len(header) + 1
	if err := r.api.UpdateCell(ctx, r.ws.Bag, 1, next, target); err != nil {
		return 0, err
	}
	return next, nil
}

// bagItemRow finds (or creates) the 1-based row for item.
func (r *Repo) bagItemRow(ctx context.Context, item string) (int, error) {
	vals, err := r.api.ReadAll(ctx, r.ws.Bag)
	if err != nil {
		return 0, err
	}
	for i, row := range vals {
		if i == 0 {
			continue
		}
		if trim(cell(row, 0)) == item {
			return i + 1, nil
		}
	}
	next := len(vals) + 1
	if next < 2 {
		next = 2
	}
	if err := r.api.UpdateCell(ctx, r.ws.Bag, next, 1, item); err != nil {
		return 0, err
	}
	return next, nil
}

// bagAdd adds qty to the (item, handle) cell. It takes bagMu for the whole
// sequence: finding a column or row may append one, and the final cell write
// is a read-modify-write.
func (r *Repo) bagAdd(ctx context.Context, handle, item string, qty int) error {
	r.bagMu.Lock()
	defer r.bagMu.Unlock()

	col, err := r.bagUserCol(ctx, handle)
	if err != nil {
		return err
	}
	row, err := r.bagItemRow(ctx, item)
	if err != nil {
		return err
	}
	cur := 0
	vals, err := r.api.ReadAll(ctx, r.ws.Bag)
	if err != nil {
		return err
	}
	if row-1 < len(vals) {
		cur = atoiDefault(cell(vals[row-1], col-1), 0)
	}
	return r.api.UpdateCell(ctx, r.ws.Bag, row, col, strconv.Itoa(cur+qty))
}

// AddCurrency grants amount of the configured currency item to handle.
// A zero amount or a disabled bag is a no-op.
func (r *Repo) AddCurrency(ctx context.Context, handle string, amount int) error {
	if !r.bagEnabled || amount == 0 {
		return nil
	}
	key := r.Conf.Str(ctx, "통화키", "골드")
	return r.bagAdd(ctx, handle, key, amount)
}

// AddItem grants qty of item to handle. Zero qty or a disabled bag is a no-op.
func (r *Repo) AddItem(ctx context.Context, handle, item string, qty int) error {
	if !r.bagEnabled || qty == 0 {
		return nil
	}
	return r.bagAdd(ctx, handle, item, qty)
}
