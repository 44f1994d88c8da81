package postgres

import (
	"context"
	"encoding/json"

	"github.com/jakechorley/territory-balancer/pkg/db"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// LoadSnapshot reads accounts, reps, rules and modifiers in one pass
func (d *DB) LoadSnapshot(ctx context.Context) (*db.Snapshot, error) {
	accounts, err := d.getAccounts(ctx)
	if err != nil {
		return nil, err
	}
	reps, err := d.getReps(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := d.getRules(ctx)
	if err != nil {
		return nil, err
	}
	modifiers, err := d.getModifiers(ctx)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("Loaded snapshot",
		zap.Int("accounts", len(accounts)),
		zap.Int("reps", len(reps)),
		zap.Int("rules", len(rules)),
		zap.Int("modifiers", len(modifiers)))

	return &db.Snapshot{
		Accounts:  accounts,
		Reps:      reps,
		Rules:     rules,
		Modifiers: modifiers,
	}, nil
}

func (d *DB) getAccounts(ctx context.Context) ([]db.Account, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, arr, atr, territory, tier, cre_risk, cre_count,
		       current_owner_id, proposed_owner_id, parent_id, is_split_ownership, owner_tenure_days
		FROM accounts
		ORDER BY id
	`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query accounts")
	}
	defer rows.Close()

	var accounts []db.Account
	for rows.Next() {
		var a db.Account
		var currentOwnerID, proposedOwnerID, parentID *string
		if err := rows.Scan(&a.ID, &a.Name, &a.ARR, &a.ATR, &a.Territory, &a.Tier, &a.CRERisk, &a.CRECount,
			&currentOwnerID, &proposedOwnerID, &parentID, &a.IsSplitOwnership, &a.OwnerTenureDays); err != nil {
			return nil, eris.Wrap(err, "postgres: scan account")
		}
		a.CurrentOwnerID = deref(currentOwnerID)
		a.ProposedOwnerID = deref(proposedOwnerID)
		a.ParentID = deref(parentID)
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate accounts")
	}
	return accounts, nil
}

func (d *DB) getReps(ctx context.Context) ([]db.Rep, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, region, active, pool, current_arr, account_count, cre_count
		FROM reps
		ORDER BY id
	`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query reps")
	}
	defer rows.Close()

	var reps []db.Rep
	for rows.Next() {
		var r db.Rep
		if err := rows.Scan(&r.ID, &r.Name, &r.Region, &r.Active, &r.Pool, &r.CurrentARR, &r.AccountCount, &r.CRECount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rep")
		}
		reps = append(reps, r)
	}

	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate reps")
	}
	return reps, nil
}

func (d *DB) getRules(ctx context.Context) ([]db.AssignmentRule, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, rule_type, priority, enabled, weights, scope
		FROM assignment_rules
		ORDER BY priority, id
	`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query assignment rules")
	}
	defer rows.Close()

	var rules []db.AssignmentRule
	for rows.Next() {
		var r db.AssignmentRule
		var weights, scope []byte
		if err := rows.Scan(&r.ID, &r.Name, &r.RuleType, &r.Priority, &r.Enabled, &weights, &scope); err != nil {
			return nil, eris.Wrap(err, "postgres: scan assignment rule")
		}
		if len(weights) > 0 {
			if err := json.Unmarshal(weights, &r.Weights); err != nil {
				return nil, eris.Wrapf(err, "postgres: decode weights of rule %s", r.ID)
			}
		}
		if len(scope) > 0 {
			if err := json.Unmarshal(scope, &r.Scope); err != nil {
				return nil, eris.Wrapf(err, "postgres: decode scope of rule %s", r.ID)
			}
		}
		rules = append(rules, r)
	}

	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate assignment rules")
	}
	return rules, nil
}

func (d *DB) getModifiers(ctx context.Context) ([]db.ConditionalModifier, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, condition, action, value, position
		FROM conditional_modifiers
		ORDER BY position, id
	`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query conditional modifiers")
	}
	defer rows.Close()

	var modifiers []db.ConditionalModifier
	for rows.Next() {
		var m db.ConditionalModifier
		if err := rows.Scan(&m.ID, &m.Name, &m.Condition, &m.Action, &m.Value, &m.Position); err != nil {
			return nil, eris.Wrap(err, "postgres: scan conditional modifier")
		}
		modifiers = append(modifiers, m)
	}

	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate conditional modifiers")
	}
	return modifiers, nil
}
