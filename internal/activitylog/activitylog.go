// Package activitylog is the append-only audit trail for onboarding applications.
package activitylog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meesalavenugopal/novacare247/internal/db"
)

// ActorType tags who caused an entry.
type ActorType string

const (
	ActorHuman  ActorType = "human"
	ActorAI     ActorType = "ai"
	ActorSystem ActorType = "system"
)

// Well-known actions.
const (
	ActionCreated       = "application_created"
	ActionStatusChanged = "status_changed"
)

// ErrBrokenChain is returned by VerifyChain when status entries do not link up.
var ErrBrokenChain = errors.New("activitylog: status chain broken")

// Entry is one immutable audit fact.
type Entry struct {
	ID              int64     `json:"id"`
	Workflow        string    `json:"workflow"`
	ApplicationID   int64     `json:"application_id"`
	Action          string    `json:"action"`
	OldValue        *string   `json:"old_value"`
	NewValue        *string   `json:"new_value"`
	PerformedBy     *int64    `json:"performed_by"`
	PerformedByType ActorType `json:"performed_by_type"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
}

// StatusChange builds a status_changed entry.
func StatusChange(workflow string, applicationID int64, from, to string, by *int64, byType ActorType, notes string) Entry {
	return Entry{
		Workflow:        workflow,
		ApplicationID:   applicationID,
		Action:          ActionStatusChanged,
		OldValue:        &from,
		NewValue:        &to,
		PerformedBy:     by,
		PerformedByType: byType,
		Notes:           notes,
	}
}

const insertEntrySQL = `
INSERT INTO onboarding_activity_logs
    (workflow, application_id, action, old_value, new_value, performed_by, performed_by_type, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at`

// Append inserts e through q, which may be a transaction.
func Append(ctx context.Context, q db.Querier, e Entry) (Entry, error) {
	if e.PerformedByType == "" {
		e.PerformedByType = ActorHuman
	}
	err := q.QueryRow(ctx, insertEntrySQL,
		e.Workflow, e.ApplicationID, e.Action, e.OldValue, e.NewValue, e.PerformedBy, string(e.PerformedByType), e.Notes,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("activitylog: append %s: %w", e.Action, err)
	}
	return e, nil
}

const listEntriesSQL = `
SELECT id, workflow, application_id, action, old_value, new_value, performed_by, performed_by_type, notes, created_at
FROM onboarding_activity_logs
WHERE workflow = $1 AND application_id = $2
ORDER BY created_at, id`

// List returns entries for one application in creation order.
func List(ctx context.Context, q db.Querier, workflow string, applicationID int64) ([]Entry, error) {
	rows, err := q.Query(ctx, listEntriesSQL, workflow, applicationID)
	if err != nil {
		return nil, fmt.Errorf("activitylog: list: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e      Entry
			byType string
		)
		if err := rows.Scan(&e.ID, &e.Workflow, &e.ApplicationID, &e.Action, &e.OldValue, &e.NewValue,
			&e.PerformedBy, &byType, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("activitylog: scan: %w", err)
		}
		e.PerformedByType = ActorType(byType)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("activitylog: rows: %w", err)
	}
	return entries, nil
}

// VerifyChain checks that each status_changed entry starts where the previous
// one ended, beginning at initial.
func VerifyChain(entries []Entry, initial string) error {
	prev := initial
	for i, e := range entries {
		if e.Action != ActionStatusChanged {
			continue
		}
		if e.OldValue == nil || e.NewValue == nil {
			return fmt.Errorf("%w: entry %d missing values", ErrBrokenChain, i)
		}
		if *e.OldValue != prev {
			return fmt.Errorf("%w: entry %d starts at %q, expected %q", ErrBrokenChain, i, *e.OldValue, prev)
		}
		prev = *e.NewValue
	}
	return nil
}
