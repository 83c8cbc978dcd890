package domain

import dErrors "vigil/pkg/domain-errors"

// RiskLevel classifies the current condition of a monitored subject.
// The order is used only for ranking urgent lists; any level may transition
// to any other level.
type RiskLevel string

const (
	RiskPositive  RiskLevel = "POSITIVE"
	RiskDanger    RiskLevel = "DANGER"
	RiskCritical  RiskLevel = "CRITICAL"
	RiskEmergency RiskLevel = "EMERGENCY"
)

var riskRank = map[RiskLevel]int{
	RiskPositive:  0,
	RiskDanger:    1,
	RiskCritical:  2,
	RiskEmergency: 3,
}

// RiskLevels lists all levels in ascending severity.
func RiskLevels() []RiskLevel {
	return []RiskLevel{RiskPositive, RiskDanger, RiskCritical, RiskEmergency}
}

// Rank returns the severity rank, -1 for unknown levels.
func (r RiskLevel) Rank() int {
	if rank, ok := riskRank[r]; ok {
		return rank
	}
	return -1
}

// Valid reports whether r is one of the defined levels.
func (r RiskLevel) Valid() bool {
	_, ok := riskRank[r]
	return ok
}

// ParseRiskLevel validates a risk level at the trust boundary.
func ParseRiskLevel(s string) (RiskLevel, error) {
	level := RiskLevel(s)
	if !level.Valid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown risk level: "+s)
	}
	return level, nil
}
