package allocator

// WarningKind classifies a warning raised during a run
type WarningKind string

const (
	WarningContinuityBroken  WarningKind = "continuity_broken"
	WarningCrossRegion       WarningKind = "cross_region"
	WarningCRERisk           WarningKind = "cre_risk"
	WarningStrategicOverflow WarningKind = "strategic_overflow"
	WarningARRCap            WarningKind = "arr_cap"
	WarningUnassigned        WarningKind = "unassigned"

	// Configuration warnings
	WarningConfigDefault   WarningKind = "config_default"
	WarningUnknownRule     WarningKind = "unknown_rule"
	WarningInvalidRule     WarningKind = "invalid_rule"
	WarningInvalidModifier WarningKind = "invalid_modifier"
)

// Severity of a warning
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Warning is an informational record surfaced to the user after a run.
// Warnings never stop a run.
type Warning struct {
	Kind        WarningKind
	Severity    Severity
	AccountID   string
	RepID       string
	RuleID      string
	Description string
}

// severityFor returns the default severity for a warning kind
func severityFor(kind WarningKind) Severity {
	switch kind {
	case WarningUnassigned:
		return SeverityHigh
	case WarningCRERisk, WarningStrategicOverflow, WarningARRCap, WarningContinuityBroken:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// NewWarning builds a warning with the default severity for its kind
func NewWarning(kind WarningKind, accountID, repID, description string) Warning {
	return Warning{
		Kind:        kind,
		Severity:    severityFor(kind),
		AccountID:   accountID,
		RepID:       repID,
		Description: description,
	}
}
