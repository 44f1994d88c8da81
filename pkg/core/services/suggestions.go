package services

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jakechorley/territory-balancer/internal/config"
	"github.com/jakechorley/territory-balancer/pkg/clients/anthropicclient"
	"github.com/jakechorley/territory-balancer/pkg/core/allocator"
)

const suggestionSystemPrompt = `You are a sales operations analyst rebalancing account territories.
You receive reps below their ARR target (with the deficit), reps above target (with the surplus)
and a batch of accounts that could be moved off the over-target reps.
Propose moves that close deficits without creating new surpluses. Prefer moving accounts to reps
in the same region and avoid stacking churn-risk (CRE) accounts on one rep.
Reply with a JSON array only. Each element must be:
{"accountId": string, "fromRepId": string, "toRepId": string, "rationale": string, "priority": integer}
Priority 1 is the most important move. Return [] if no move helps.`

// Suggestion is an advisory account move. Suggestions are never committed automatically.
type Suggestion struct {
	AccountID string `json:"accountId"`
	FromRepID string `json:"fromRepId"`
	ToRepID   string `json:"toRepId"`
	Rationale string `json:"rationale"`
	Priority  int    `json:"priority"`
}

// RepGap is a rep's distance from the ARR target
type RepGap struct {
	RepID  string  `json:"repId"`
	Name   string  `json:"name"`
	Region string  `json:"region"`
	ARR    float64 `json:"arr"`
	Gap    float64 `json:"gap"`
}

// MovableAccount is an account held by an over-target rep
type MovableAccount struct {
	AccountID string  `json:"accountId"`
	Name      string  `json:"name"`
	ARR       float64 `json:"arr"`
	Territory string  `json:"territory"`
	Tier      int     `json:"tier,omitempty"`
	CRERisk   bool    `json:"creRisk,omitempty"`
	FromRepID string  `json:"fromRepId"`
}

// ProblemSummary is the compact description of an imbalance sent to the model
type ProblemSummary struct {
	TargetARR       float64          `json:"targetArr"`
	UnderTargetReps []RepGap         `json:"underTargetReps"`
	OverTargetReps  []RepGap         `json:"overTargetReps"`
	MovableAccounts []MovableAccount `json:"movableAccounts"`
}

// SuggestionsResult contains the suggestions for the latest run
type SuggestionsResult struct {
	RunID       string
	Summary     ProblemSummary
	Suggestions []Suggestion

	// Batches is the number of requests sent; SkippedBatches could not be parsed
	Batches        int
	SkippedBatches int
	InputTokens    int64
	OutputTokens   int64
}

// ProgressFunc reports completed batches
type ProgressFunc func(done, total int)

// BuildProblemSummary lists under- and over-target active reps and the accounts
// that could move off the over-target reps.
// Reps are ordered by largest gap first, accounts by descending ARR.
func BuildProblemSummary(outcome *allocator.AllocationOutcome, accounts map[string]*allocator.Account) ProblemSummary {
	summary := ProblemSummary{
		UnderTargetReps: []RepGap{},
		OverTargetReps:  []RepGap{},
		MovableAccounts: []MovableAccount{},
	}
	if outcome == nil || outcome.State == nil {
		return summary
	}
	target := outcome.State.TargetARR
	summary.TargetARR = target

	over := make(map[string]bool)
	for _, rep := range outcome.State.ActiveReps() {
		gap := RepGap{RepID: rep.ID, Name: rep.Name, Region: rep.Region, ARR: rep.CurrentARR}
		switch {
		case rep.CurrentARR < target:
			gap.Gap = target - rep.CurrentARR
			summary.UnderTargetReps = append(summary.UnderTargetReps, gap)
		case rep.CurrentARR > target:
			gap.Gap = rep.CurrentARR - target
			summary.OverTargetReps = append(summary.OverTargetReps, gap)
			over[rep.ID] = true
		}
	}
	byGap := func(a, b RepGap) int {
		return cmp.Or(cmp.Compare(b.Gap, a.Gap), strings.Compare(a.RepID, b.RepID))
	}
	slices.SortFunc(summary.UnderTargetReps, byGap)
	slices.SortFunc(summary.OverTargetReps, byGap)

	for _, a := range outcome.Assignments {
		if !over[a.RepID] {
			continue
		}
		account, ok := accounts[a.AccountID]
		if !ok {
			continue
		}
		summary.MovableAccounts = append(summary.MovableAccounts, MovableAccount{
			AccountID: account.ID,
			Name:      account.Name,
			ARR:       account.ARR,
			Territory: account.Territory,
			Tier:      account.Tier,
			CRERisk:   account.IsCRERisk(),
			FromRepID: a.RepID,
		})
	}
	slices.SortFunc(summary.MovableAccounts, func(a, b MovableAccount) int {
		return cmp.Or(cmp.Compare(b.ARR, a.ARR), strings.Compare(a.AccountID, b.AccountID))
	})

	return summary
}

// GenerateSuggestions asks the model for rebalancing moves for the latest committed run.
// Movable accounts are sent in batches; progress is reported after each batch and
// cancellation is checked between batches.
func GenerateSuggestions(ctx context.Context, store LatestRunStore, client anthropicclient.Client, cfg *config.Config, logger *zap.Logger, progress ProgressFunc) (*SuggestionsResult, error) {
	if cfg.Anthropic == nil {
		return nil, eris.New("services: anthropic is not configured")
	}

	committed, err := loadCommittedRun(ctx, store, cfg, logger)
	if err != nil {
		return nil, err
	}

	summary := BuildProblemSummary(committed.outcome, committed.accounts)
	result := &SuggestionsResult{
		RunID:       committed.record.Run.ID,
		Summary:     summary,
		Suggestions: []Suggestion{},
	}

	if len(summary.UnderTargetReps) == 0 || len(summary.MovableAccounts) == 0 {
		logger.Info("No imbalance to resolve", zap.String("run_id", result.RunID))
		return result, nil
	}

	batches := batchAccounts(summary.MovableAccounts, cfg.Anthropic.BatchSize)
	logger.Debug("Generating suggestions",
		zap.Int("under_target", len(summary.UnderTargetReps)),
		zap.Int("movable", len(summary.MovableAccounts)),
		zap.Int("batches", len(batches)))

	activeReps := make(map[string]bool)
	for _, rep := range committed.outcome.State.ActiveReps() {
		activeReps[rep.ID] = true
	}
	seen := make(map[string]bool)

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrapf(err, "services: suggestions cancelled after %d of %d batches", i, len(batches))
		}

		prompt, err := batchPrompt(summary, batch)
		if err != nil {
			return nil, eris.Wrap(err, "services: encode problem summary")
		}

		resp, err := client.CreateMessage(ctx, anthropicclient.MessageRequest{
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
			System:    suggestionSystemPrompt,
			Messages:  []anthropicclient.Message{{Role: "user", Content: prompt}},
		})
		if err != nil {
			return nil, eris.Wrapf(err, "services: request suggestions for batch %d", i+1)
		}
		result.Batches++
		result.InputTokens += resp.Usage.InputTokens
		result.OutputTokens += resp.Usage.OutputTokens

		suggestions, err := parseSuggestions(resp.Text())
		if err != nil {
			result.SkippedBatches++
			logger.Warn("Skipping unparseable suggestion batch", zap.Int("batch", i+1), zap.Error(err))
		}

		for _, s := range filterSuggestions(suggestions, batch, activeReps) {
			if seen[s.AccountID] {
				continue
			}
			seen[s.AccountID] = true
			result.Suggestions = append(result.Suggestions, s)
		}

		if progress != nil {
			progress(i+1, len(batches))
		}
	}

	slices.SortStableFunc(result.Suggestions, func(a, b Suggestion) int {
		return cmp.Or(cmp.Compare(a.Priority, b.Priority), strings.Compare(a.AccountID, b.AccountID))
	})

	logger.Info("Generated suggestions",
		zap.String("run_id", result.RunID),
		zap.Int("suggestions", len(result.Suggestions)),
		zap.Int("skipped_batches", result.SkippedBatches))

	return result, nil
}

func batchAccounts(accounts []MovableAccount, size int) [][]MovableAccount {
	if len(accounts) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(accounts)
	}
	var batches [][]MovableAccount
	for chunk := range slices.Chunk(accounts, size) {
		batches = append(batches, chunk)
	}
	return batches
}

func batchPrompt(summary ProblemSummary, batch []MovableAccount) (string, error) {
	payload := summary
	payload.MovableAccounts = batch
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Current imbalance:\n%s\n\nSuggest moves for the movable accounts above.", data), nil
}

// parseSuggestions reads a JSON array from model output that may be wrapped in
// markdown fences or prose
func parseSuggestions(text string) ([]Suggestion, error) {
	cleaned := cleanJSONArray(text)
	if cleaned == "" {
		return nil, eris.New("services: no JSON array in response")
	}
	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(cleaned), &suggestions); err != nil {
		return nil, eris.Wrap(err, "services: decode suggestions")
	}
	return suggestions, nil
}

func cleanJSONArray(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}

// filterSuggestions keeps moves of accounts in the batch to a different active rep.
// A missing fromRepId is filled from the batch; a mismatched one drops the move.
func filterSuggestions(suggestions []Suggestion, batch []MovableAccount, activeReps map[string]bool) []Suggestion {
	owners := make(map[string]string, len(batch))
	for _, account := range batch {
		owners[account.AccountID] = account.FromRepID
	}

	kept := make([]Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		owner, ok := owners[s.AccountID]
		if !ok {
			continue
		}
		if s.FromRepID == "" {
			s.FromRepID = owner
		}
		if s.FromRepID != owner || s.ToRepID == owner || !activeReps[s.ToRepID] {
			continue
		}
		if s.Priority < 1 {
			s.Priority = 1
		}
		kept = append(kept, s)
	}
	return kept
}
