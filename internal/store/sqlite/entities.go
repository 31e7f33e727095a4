package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Iron-Ham/initiative/internal/event"
	"github.com/Iron-Ham/initiative/internal/model"
	"github.com/Iron-Ham/initiative/internal/store"
)

// Entities is the participant document backed by the participants and
// encounter tables.
type Entities struct {
	db *DB
}

var _ store.EntityStore = (*Entities)(nil)

// Participants returns every participant in insertion order.
func (e *Entities) Participants(ctx context.Context) ([]model.Participant, error) {
	rows, err := e.db.sqlDB.QueryContext(ctx, "SELECT doc FROM participants ORDER BY rowid")
	if err != nil {
		return nil, e.db.storeErr("entities", "participants", err)
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, e.db.storeErr("entities", "participants", err)
		}
		var p model.Participant
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, fmt.Errorf("decode participant: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, e.db.storeErr("entities", "participants", err)
	}
	return out, nil
}

// Put inserts or replaces participants. Replaced records keep their
// position in the insertion order.
func (e *Entities) Put(ctx context.Context, participants ...model.Participant) error {
	if len(participants) == 0 {
		return nil
	}

	ids := make([]string, 0, len(participants))
	err := e.db.withTx(ctx, func(tx *sql.Tx) error {
		for _, p := range participants {
			doc, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("encode participant %s: %w", p.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO participants (id, doc) VALUES (?, ?)
				 ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`,
				p.ID, string(doc),
			); err != nil {
				return err
			}
			ids = append(ids, p.ID)
		}
		return nil
	})
	if err != nil {
		return e.db.storeErr("entities", "put", err)
	}

	e.db.bus.Publish(event.NewEntitiesChangedEvent(ids, false))
	return nil
}

// BatchPatch applies fn to every listed participant in one transaction.
func (e *Entities) BatchPatch(ctx context.Context, ids []string, fn func(*model.Participant)) error {
	if len(ids) == 0 {
		return nil
	}

	var patched []string
	err := e.db.withTx(ctx, func(tx *sql.Tx) error {
		docs, err := loadDocs[model.Participant](ctx, tx, "participants", ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			p, ok := docs[id]
			if !ok {
				continue
			}
			fn(&p)
			p.ID = id
			doc, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("encode participant %s: %w", id, err)
			}
			if _, err := tx.ExecContext(ctx, "UPDATE participants SET doc = ? WHERE id = ?", string(doc), id); err != nil {
				return err
			}
			patched = append(patched, id)
		}
		return nil
	})
	if err != nil {
		return e.db.storeErr("entities", "batch_patch", err)
	}

	if len(patched) > 0 {
		e.db.bus.Publish(event.NewEntitiesChangedEvent(patched, false))
	}
	return nil
}

// Encounter returns the round bookkeeping record.
func (e *Entities) Encounter(ctx context.Context) (model.Encounter, error) {
	var doc string
	if err := e.db.sqlDB.QueryRowContext(ctx, "SELECT doc FROM encounter WHERE id = 1").Scan(&doc); err != nil {
		return model.Encounter{}, e.db.storeErr("entities", "encounter", err)
	}
	var enc model.Encounter
	if err := json.Unmarshal([]byte(doc), &enc); err != nil {
		return model.Encounter{}, fmt.Errorf("decode encounter: %w", err)
	}
	return enc, nil
}

// PatchEncounter mutates the round bookkeeping record in one transaction.
func (e *Entities) PatchEncounter(ctx context.Context, fn func(*model.Encounter)) error {
	err := e.db.withTx(ctx, func(tx *sql.Tx) error {
		var doc string
		if err := tx.QueryRowContext(ctx, "SELECT doc FROM encounter WHERE id = 1").Scan(&doc); err != nil {
			return err
		}
		var enc model.Encounter
		if err := json.Unmarshal([]byte(doc), &enc); err != nil {
			return fmt.Errorf("decode encounter: %w", err)
		}
		fn(&enc)
		next, err := json.Marshal(enc)
		if err != nil {
			return fmt.Errorf("encode encounter: %w", err)
		}
		_, err = tx.ExecContext(ctx, "UPDATE encounter SET doc = ? WHERE id = 1", string(next))
		return err
	})
	if err != nil {
		return e.db.storeErr("entities", "patch_encounter", err)
	}

	e.db.bus.Publish(event.NewEntitiesChangedEvent(nil, false))
	return nil
}

// OnChange registers a change handler for local and remote writes.
func (e *Entities) OnChange(fn store.ChangeHandler) func() {
	return subscribe(e.db.bus, event.TypeEntitiesChanged, fn)
}

func subscribe(bus *event.Bus, eventType string, fn store.ChangeHandler) func() {
	id := bus.Subscribe(eventType, func(e event.Event) {
		if sc, ok := e.(event.StoreChangedEvent); ok {
			fn(sc)
		}
	})
	return func() { bus.Unsubscribe(id) }
}

// loadDocs reads the JSON documents of the listed rows of table.
func loadDocs[T any](ctx context.Context, tx *sql.Tx, table string, ids []string) (map[string]T, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT id, doc FROM "+table+" WHERE id IN ("+placeholders(len(ids))+")",
		args(ids)...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]T, len(ids))
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(doc), &v); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", table, id, err)
		}
		out[id] = v
	}
	return out, rows.Err()
}
