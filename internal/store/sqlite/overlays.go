package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Iron-Ham/initiative/internal/event"
	"github.com/Iron-Ham/initiative/internal/model"
	"github.com/Iron-Ham/initiative/internal/store"
)

// Overlays is the ring overlay document backed by the rings table.
type Overlays struct {
	db *DB
}

var _ store.OverlayStore = (*Overlays)(nil)

// Rings returns every ring in insertion order.
func (o *Overlays) Rings(ctx context.Context) ([]model.RingObject, error) {
	rows, err := o.db.sqlDB.QueryContext(ctx, "SELECT doc FROM rings ORDER BY rowid")
	if err != nil {
		return nil, o.db.storeErr("overlays", "rings", err)
	}
	defer rows.Close()

	var out []model.RingObject
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, o.db.storeErr("overlays", "rings", err)
		}
		var r model.RingObject
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, fmt.Errorf("decode ring: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, o.db.storeErr("overlays", "rings", err)
	}
	return out, nil
}

// Add inserts rings in one transaction.
func (o *Overlays) Add(ctx context.Context, rings ...model.RingObject) error {
	if len(rings) == 0 {
		return nil
	}

	ids := make([]string, 0, len(rings))
	err := o.db.withTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rings {
			if err := putRing(ctx, tx, r); err != nil {
				return err
			}
			ids = append(ids, r.ID)
		}
		return nil
	})
	if err != nil {
		return o.db.storeErr("overlays", "add", err)
	}

	o.db.bus.Publish(event.NewOverlaysChangedEvent(ids, false))
	return nil
}

// Update applies fn to every listed ring in one transaction.
func (o *Overlays) Update(ctx context.Context, ids []string, fn func(*model.RingObject)) error {
	if len(ids) == 0 {
		return nil
	}

	var updated []string
	err := o.db.withTx(ctx, func(tx *sql.Tx) error {
		docs, err := loadDocs[model.RingObject](ctx, tx, "rings", ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			r, ok := docs[id]
			if !ok {
				continue
			}
			fn(&r)
			r.ID = id
			if err := putRing(ctx, tx, r); err != nil {
				return err
			}
			updated = append(updated, id)
		}
		return nil
	})
	if err != nil {
		return o.db.storeErr("overlays", "update", err)
	}

	if len(updated) > 0 {
		o.db.bus.Publish(event.NewOverlaysChangedEvent(updated, false))
	}
	return nil
}

// Delete removes the listed rings.
func (o *Overlays) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := o.db.sqlDB.ExecContext(ctx,
		"DELETE FROM rings WHERE id IN ("+placeholders(len(ids))+")",
		args(ids)...,
	); err != nil {
		return o.db.storeErr("overlays", "delete", err)
	}

	o.db.bus.Publish(event.NewOverlaysChangedEvent(slices.Clone(ids), false))
	return nil
}

// OnChange registers a change handler for local and remote writes.
func (o *Overlays) OnChange(fn store.ChangeHandler) func() {
	return subscribe(o.db.bus, event.TypeOverlaysChanged, fn)
}

func putRing(ctx context.Context, tx *sql.Tx, r model.RingObject) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode ring %s: %w", r.ID, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO rings (id, owner_id, variant, doc) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET owner_id = excluded.owner_id, variant = excluded.variant, doc = excluded.doc`,
		r.ID, r.OwnerID, string(r.Variant), string(doc),
	)
	return err
}
