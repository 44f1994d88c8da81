package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jakechorley/territory-balancer/pkg/db"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewWithPool(mock, zap.NewNop()), mock
}

func TestRunMigrations_FreshDB(t *testing.T) {
	database, mock := newMockDB(t)

	files, err := migrationFiles()
	require.NoError(t, err)
	require.Equal(t, []string{"001_init.sql"}, files)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT filename FROM schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"filename"}))

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("001_init.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = database.RunMigrations(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_AlreadyApplied(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT filename FROM schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"filename"}).AddRow("001_init.sql"))

	err := database.RunMigrations(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_FailedMigrationRollsBack(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT filename FROM schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"filename"}))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").
		WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err := database.RunMigrations(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_init.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadSnapshot(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectQuery("FROM accounts").WillReturnRows(
		pgxmock.NewRows([]string{
			"id", "name", "arr", "atr", "territory", "tier", "cre_risk", "cre_count",
			"current_owner_id", "proposed_owner_id", "parent_id", "is_split_ownership", "owner_tenure_days",
		}).
			AddRow("acc-1", "Acme", 250000.0, 100000.0, "West", 1, true, 1, "rep-1", nil, nil, false, 400).
			AddRow("acc-2", "Beta", 50000.0, 0.0, "East", 3, false, 0, nil, nil, "acc-1", true, 0),
	)
	mock.ExpectQuery("FROM reps").WillReturnRows(
		pgxmock.NewRows([]string{"id", "name", "region", "active", "pool", "current_arr", "account_count", "cre_count"}).
			AddRow("rep-1", "Alex", "West", true, "strategic", 1200000.0, 12, 2),
	)
	mock.ExpectQuery("FROM assignment_rules").WillReturnRows(
		pgxmock.NewRows([]string{"id", "name", "rule_type", "priority", "enabled", "weights", "scope"}).
			AddRow("geo", "Geography", "GEO_FIRST", 1, true,
				[]byte(`{"territoryMatch": 60}`), []byte(`{"territories": ["West"], "minArr": 1000}`)),
	)
	mock.ExpectQuery("FROM conditional_modifiers").WillReturnRows(
		pgxmock.NewRows([]string{"id", "name", "condition", "action", "value", "position"}).
			AddRow("mod-1", "Keep owners", "not_current_owner", "add_penalty", 15.0, 1).
			AddRow("mod-2", "No giants", "account_arr_above:5000000", "disqualify", nil, 2),
	)

	snapshot, err := database.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, snapshot.Accounts, 2)
	assert.Equal(t, "rep-1", snapshot.Accounts[0].CurrentOwnerID)
	assert.Equal(t, "", snapshot.Accounts[0].ParentID)
	assert.Equal(t, "acc-1", snapshot.Accounts[1].ParentID)
	assert.Equal(t, "", snapshot.Accounts[1].CurrentOwnerID)
	assert.Equal(t, 400, snapshot.Accounts[0].OwnerTenureDays)

	require.Len(t, snapshot.Reps, 1)
	assert.Equal(t, 1200000.0, snapshot.Reps[0].CurrentARR)

	require.Len(t, snapshot.Rules, 1)
	assert.Equal(t, map[string]float64{"territoryMatch": 60}, snapshot.Rules[0].Weights)
	assert.Equal(t, []string{"West"}, snapshot.Rules[0].Scope.Territories)
	require.NotNil(t, snapshot.Rules[0].Scope.MinARR)
	assert.Equal(t, 1000.0, *snapshot.Rules[0].Scope.MinARR)

	require.Len(t, snapshot.Modifiers, 2)
	require.NotNil(t, snapshot.Modifiers[0].Value)
	assert.Equal(t, 15.0, *snapshot.Modifiers[0].Value)
	assert.Nil(t, snapshot.Modifiers[1].Value)
}

func TestLoadSnapshot_BadRuleJSON(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectQuery("FROM accounts").WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectQuery("FROM reps").WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectQuery("FROM assignment_rules").WillReturnRows(
		pgxmock.NewRows([]string{"id", "name", "rule_type", "priority", "enabled", "weights", "scope"}).
			AddRow("geo", "", "GEO_FIRST", 1, true, []byte(`{not json`), []byte(`{}`)),
	)

	_, err := database.LoadSnapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights of rule geo")
}

func TestLoadSnapshot_QueryError(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectQuery("FROM accounts").WillReturnError(errors.New("connection reset"))

	_, err := database.LoadSnapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query accounts")
}

func testRun() *db.Run {
	return &db.Run{
		ID:              "run-1",
		CreatedAt:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		TargetARR:       2_000_000,
		HardCutoffARR:   2_500_000,
		AssignedCount:   1,
		UnassignedCount: 1,
		ARRBalanceScore: 82.5,
		GeoAlignmentPct: 100,
		ContinuityPct:   0,
	}
}

func TestSaveRun_CommitsEverything(t *testing.T) {
	database, mock := newMockDB(t)

	results := []db.AssignmentResult{
		{AccountID: "acc-1", RepID: "rep-1", FinalScore: 90, GeoMatch: true, Tier: "P2"},
		{AccountID: "acc-2"},
	}
	warnings := []db.WarningRecord{
		{ID: "w-1", Kind: "unassigned", Severity: "high", AccountID: "acc-2", Description: "no active reps available"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO assignment_runs").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"assignment_results"}, resultColumns).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"assignment_warnings"}, warningColumns).WillReturnResult(1)
	mock.ExpectCommit()

	err := database.SaveRun(context.Background(), testRun(), results, warnings)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRun_SkipsEmptyCopies(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO assignment_runs").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := database.SaveRun(context.Background(), testRun(), nil, nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRun_RollsBackOnFailure(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO assignment_runs").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"assignment_results"}, resultColumns).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := database.SaveRun(context.Background(), testRun(), []db.AssignmentResult{{AccountID: "acc-1", RepID: "rep-1"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy results of run run-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestRun_NoRuns(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectQuery("FROM assignment_runs").WillReturnRows(pgxmock.NewRows([]string{
		"id", "created_at", "target_arr", "hard_cutoff_arr", "assigned_count", "unassigned_count",
		"arr_balance_score", "geo_alignment_pct", "continuity_pct",
	}))

	_, err := database.GetLatestRun(context.Background())
	assert.True(t, errors.Is(err, db.ErrNoRuns))
}

func TestGetLatestRun(t *testing.T) {
	database, mock := newMockDB(t)
	run := testRun()

	mock.ExpectQuery("FROM assignment_runs").WillReturnRows(pgxmock.NewRows([]string{
		"id", "created_at", "target_arr", "hard_cutoff_arr", "assigned_count", "unassigned_count",
		"arr_balance_score", "geo_alignment_pct", "continuity_pct",
	}).AddRow(run.ID, run.CreatedAt, run.TargetARR, run.HardCutoffARR, run.AssignedCount, run.UnassignedCount,
		run.ARRBalanceScore, run.GeoAlignmentPct, run.ContinuityPct))

	mock.ExpectQuery("FROM assignment_results").WithArgs("run-1").WillReturnRows(pgxmock.NewRows([]string{
		"account_id", "rep_id", "previous_owner_id", "raw_score", "adjusted_score", "final_score",
		"geo_match", "continuity", "tier", "soft_breach",
	}).
		AddRow("acc-1", "rep-1", "rep-2", 60.0, 60.0, 90.0, true, false, "P2", false).
		AddRow("acc-2", nil, nil, 0.0, 0.0, 0.0, false, false, "", false))

	mock.ExpectQuery("FROM assignment_warnings").WithArgs("run-1").WillReturnRows(pgxmock.NewRows([]string{
		"id", "kind", "severity", "account_id", "rep_id", "rule_id", "description",
	}).AddRow("w-1", "unassigned", "high", "acc-2", nil, nil, "no active reps available"))

	record, err := database.GetLatestRun(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, *run, record.Run)

	require.Len(t, record.Results, 2)
	assert.Equal(t, "rep-1", record.Results[0].RepID)
	assert.Equal(t, "rep-2", record.Results[0].PreviousOwnerID)
	assert.Equal(t, "run-1", record.Results[0].RunID)
	assert.Equal(t, "", record.Results[1].RepID)

	require.Len(t, record.Warnings, 1)
	assert.Equal(t, "acc-2", record.Warnings[0].AccountID)
	assert.Equal(t, "", record.Warnings[0].RepID)
}
