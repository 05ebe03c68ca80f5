package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/warsim/internal/battle"
	"github.com/cory-johannsen/warsim/internal/simulation"
)

// ErrReportNotFound is returned when a report lookup yields no results.
var ErrReportNotFound = simulation.ErrReportNotFound

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// ReportRepository persists battle reports and their event logs.
type ReportRepository struct {
	db *pgxpool.Pool
}

// NewReportRepository creates a ReportRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

// Save inserts the report row and every event in one transaction.
//
// Precondition: rep must be non-nil with a non-nil ID.
// Postcondition: Returns nil and the report is readable by Get, or an error and
// nothing is written.
func (r *ReportRepository) Save(ctx context.Context, rep *simulation.Report) error {
	final, err := json.Marshal(rep.Final)
	if err != nil {
		return fmt.Errorf("encoding final snapshot: %w", err)
	}
	fxA, err := json.Marshal(nonNilEffects(rep.EffectsA))
	if err != nil {
		return fmt.Errorf("encoding side A effects: %w", err)
	}
	fxB, err := json.Marshal(nonNilEffects(rep.EffectsB))
	if err != nil {
		return fmt.Errorf("encoding side B effects: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO battles (id, ref, scenario, winner, reason, rounds,
		                      side_a_total, side_b_total, digest, final, effects_a, effects_b, created_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rep.ID.String(), rep.Ref, rep.Scenario, rep.Outcome.Winner.String(), string(rep.Outcome.Reason),
		rep.Rounds, rep.Outcome.SideATotal, rep.Outcome.SideBTotal, rep.Digest,
		final, fxA, fxB, rep.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting battle %s: %w", rep.ID, err)
	}

	if len(rep.Events) > 0 {
		batch := &pgx.Batch{}
		for i := range rep.Events {
			payload, err := json.Marshal(&rep.Events[i])
			if err != nil {
				return fmt.Errorf("encoding event %d: %w", i, err)
			}
			batch.Queue(
				`INSERT INTO battle_events (battle_id, seq, round, kind, payload)
				 VALUES ($1::uuid, $2, $3, $4, $5)`,
				rep.ID.String(), i, rep.Events[i].Round, string(rep.Events[i].Kind), payload,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting events for battle %s: %w", rep.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing battle %s: %w", rep.ID, err)
	}
	return nil
}

const reportColumns = `id::text, ref, scenario, winner, reason, rounds,
	side_a_total, side_b_total, digest, final, effects_a, effects_b, created_at`

// Get loads a report with its full event log.
//
// Postcondition: Returns the report, or ErrReportNotFound.
func (r *ReportRepository) Get(ctx context.Context, id uuid.UUID) (*simulation.Report, error) {
	rep, err := scanReport(r.db.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM battles WHERE id = $1::uuid`, id.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("querying battle %s: %w", id, err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT payload FROM battle_events WHERE battle_id = $1::uuid ORDER BY seq`, id.String())
	if err != nil {
		return nil, fmt.Errorf("querying events for battle %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		var e battle.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decoding event: %w", err)
		}
		rep.Events = append(rep.Events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return rep, nil
}

// List returns the most recent reports without their event logs, newest first.
//
// Postcondition: Returns at most limit reports (DefaultListLimit when limit <= 0).
func (r *ReportRepository) List(ctx context.Context, limit int) ([]*simulation.Report, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+reportColumns+` FROM battles ORDER BY created_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing battles: %w", err)
	}
	defer rows.Close()

	var out []*simulation.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning battle: %w", err)
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating battles: %w", err)
	}
	return out, nil
}

func scanReport(row pgx.Row) (*simulation.Report, error) {
	var rep simulation.Report
	var id, winner, reason string
	var final, fxA, fxB []byte
	err := row.Scan(&id, &rep.Ref, &rep.Scenario, &winner, &reason, &rep.Rounds,
		&rep.Outcome.SideATotal, &rep.Outcome.SideBTotal, &rep.Digest,
		&final, &fxA, &fxB, &rep.CreatedAt)
	if err != nil {
		return nil, err
	}
	if rep.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing id %q: %w", id, err)
	}
	if err := rep.Outcome.Winner.UnmarshalText([]byte(winner)); err != nil {
		return nil, err
	}
	rep.Outcome.Reason = battle.Reason(reason)
	rep.Outcome.Round = rep.Rounds
	if err := json.Unmarshal(final, &rep.Final); err != nil {
		return nil, fmt.Errorf("decoding final snapshot: %w", err)
	}
	if err := json.Unmarshal(fxA, &rep.EffectsA); err != nil {
		return nil, fmt.Errorf("decoding side A effects: %w", err)
	}
	if err := json.Unmarshal(fxB, &rep.EffectsB); err != nil {
		return nil, fmt.Errorf("decoding side B effects: %w", err)
	}
	rep.CreatedAt = rep.CreatedAt.UTC()
	return &rep, nil
}

func nonNilEffects[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
