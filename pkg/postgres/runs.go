package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jakechorley/territory-balancer/pkg/db"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var resultColumns = []string{
	"run_id", "account_id", "rep_id", "previous_owner_id",
	"raw_score", "adjusted_score", "final_score",
	"geo_match", "continuity", "tier", "soft_breach", "seq",
}

var warningColumns = []string{
	"id", "run_id", "kind", "severity", "account_id", "rep_id", "rule_id", "description", "seq",
}

// SaveRun writes the run header, results and warnings in a single transaction.
// Nothing is committed if any step fails. Results and warnings keep their slice order.
func (d *DB) SaveRun(ctx context.Context, run *db.Run, results []db.AssignmentResult, warnings []db.WarningRecord) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin run transaction")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO assignment_runs (id, created_at, target_arr, hard_cutoff_arr, assigned_count, unassigned_count,
		                             arr_balance_score, geo_alignment_pct, continuity_pct)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, run.ID, run.CreatedAt.UTC(), run.TargetARR, run.HardCutoffARR, run.AssignedCount, run.UnassignedCount,
		run.ARRBalanceScore, run.GeoAlignmentPct, run.ContinuityPct)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	if len(results) > 0 {
		rows := make([][]any, 0, len(results))
		for i, r := range results {
			rows = append(rows, []any{
				run.ID, r.AccountID, nullable(r.RepID), nullable(r.PreviousOwnerID),
				r.RawScore, r.AdjustedScore, r.FinalScore,
				r.GeoMatch, r.Continuity, r.Tier, r.SoftBreach, i,
			})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"assignment_results"}, resultColumns, pgx.CopyFromRows(rows)); err != nil {
			return eris.Wrapf(err, "postgres: copy results of run %s", run.ID)
		}
	}

	if len(warnings) > 0 {
		rows := make([][]any, 0, len(warnings))
		for i, w := range warnings {
			rows = append(rows, []any{
				w.ID, run.ID, w.Kind, w.Severity,
				nullable(w.AccountID), nullable(w.RepID), nullable(w.RuleID), w.Description, i,
			})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"assignment_warnings"}, warningColumns, pgx.CopyFromRows(rows)); err != nil {
			return eris.Wrapf(err, "postgres: copy warnings of run %s", run.ID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "postgres: commit run %s", run.ID)
	}

	d.logger.Info("Saved run",
		zap.String("run_id", run.ID),
		zap.Int("results", len(results)),
		zap.Int("warnings", len(warnings)))
	return nil
}

// GetLatestRun returns the most recently created run with its results and warnings
func (d *DB) GetLatestRun(ctx context.Context) (*db.RunRecord, error) {
	var run db.Run
	err := d.pool.QueryRow(ctx, `
		SELECT id, created_at, target_arr, hard_cutoff_arr, assigned_count, unassigned_count,
		       arr_balance_score, geo_alignment_pct, continuity_pct
		FROM assignment_runs
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`).Scan(&run.ID, &run.CreatedAt, &run.TargetARR, &run.HardCutoffARR, &run.AssignedCount, &run.UnassignedCount,
		&run.ARRBalanceScore, &run.GeoAlignmentPct, &run.ContinuityPct)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNoRuns
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query latest run")
	}

	results, err := d.getResults(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	warnings, err := d.getWarnings(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	return &db.RunRecord{Run: run, Results: results, Warnings: warnings}, nil
}

func (d *DB) getResults(ctx context.Context, runID string) ([]db.AssignmentResult, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT account_id, rep_id, previous_owner_id, raw_score, adjusted_score, final_score,
		       geo_match, continuity, tier, soft_breach
		FROM assignment_results
		WHERE run_id = $1
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query results of run %s", runID)
	}
	defer rows.Close()

	var results []db.AssignmentResult
	for rows.Next() {
		r := db.AssignmentResult{RunID: runID}
		var repID, previousOwnerID *string
		if err := rows.Scan(&r.AccountID, &repID, &previousOwnerID, &r.RawScore, &r.AdjustedScore, &r.FinalScore,
			&r.GeoMatch, &r.Continuity, &r.Tier, &r.SoftBreach); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		r.RepID = deref(repID)
		r.PreviousOwnerID = deref(previousOwnerID)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate results")
	}
	return results, nil
}

func (d *DB) getWarnings(ctx context.Context, runID string) ([]db.WarningRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, kind, severity, account_id, rep_id, rule_id, description
		FROM assignment_warnings
		WHERE run_id = $1
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query warnings of run %s", runID)
	}
	defer rows.Close()

	var warnings []db.WarningRecord
	for rows.Next() {
		w := db.WarningRecord{RunID: runID}
		var accountID, repID, ruleID *string
		if err := rows.Scan(&w.ID, &w.Kind, &w.Severity, &accountID, &repID, &ruleID, &w.Description); err != nil {
			return nil, eris.Wrap(err, "postgres: scan warning")
		}
		w.AccountID = deref(accountID)
		w.RepID = deref(repID)
		w.RuleID = deref(ruleID)
		warnings = append(warnings, w)
	}

	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate warnings")
	}
	return warnings, nil
}
