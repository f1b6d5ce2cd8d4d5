// Package kpi computes production-costing KPIs (net quantity, revenue, cost,
// profit, margin) from free-text form input.
package kpi

import (
	"fmt"
	"strings"
)

// RawInput holds the free-text field values of one calculation request.
type RawInput struct {
	Quantity   string `json:"quantity" yaml:"quantity"`
	SellPrice  string `json:"sellPrice" yaml:"sellPrice"`
	RawCost    string `json:"rawCost" yaml:"rawCost"`
	ProcCost   string `json:"procCost" yaml:"procCost"`
	Freight    string `json:"freight,omitempty" yaml:"freight,omitempty"`
	YieldPct   string `json:"yieldPct,omitempty" yaml:"yieldPct,omitempty"`
	WastePct   string `json:"wastePct,omitempty" yaml:"wastePct,omitempty"`
	Currency   string `json:"currency,omitempty" yaml:"currency,omitempty"`
	WebhookURL string `json:"webhookUrl,omitempty" yaml:"webhookUrl,omitempty"`
}

// ParsedInput holds the numeric values a calculation actually used. YieldPct
// and WastePct are complementary; the one not supplied is derived.
type ParsedInput struct {
	Quantity  float64 `json:"quantity"`
	SellPrice float64 `json:"sellPrice"`
	RawCost   float64 `json:"rawCost"`
	ProcCost  float64 `json:"procCost"`
	Freight   float64 `json:"freight"`
	YieldPct  float64 `json:"yieldPct"`
	WastePct  float64 `json:"wastePct"`
}

// UnitCost returns the combined per-unit cost.
func (p ParsedInput) UnitCost() float64 {
	return p.RawCost + p.ProcCost + p.Freight
}

// Field names used in validation messages.
const (
	FieldQuantity  = "quantity"
	FieldSellPrice = "sellPrice"
	FieldRawCost   = "rawCost"
	FieldProcCost  = "procCost"
	FieldFreight   = "freight"
	FieldYieldPct  = "yieldPct"
	FieldWastePct  = "wastePct"
)

// Policy selects how the yield/waste field is interpreted and validated.
type Policy string

const (
	// PolicyYieldStrict treats the field as the retained percentage and
	// rejects values outside [0,100].
	PolicyYieldStrict Policy = "yield-strict"
	// PolicyYieldClamp treats the field as the retained percentage and clamps
	// it into [0,100].
	PolicyYieldClamp Policy = "yield-clamp"
	// PolicyWaste treats the field as the lost percentage with no domain
	// restriction.
	PolicyWaste Policy = "waste"

	// DefaultPolicy is the policy used when none is configured.
	DefaultPolicy = PolicyYieldStrict
)

// ParsePolicy maps a configuration value onto a Policy. An empty value selects
// DefaultPolicy.
func ParsePolicy(value string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return DefaultPolicy, nil
	case PolicyYieldStrict, PolicyYieldClamp, PolicyWaste:
		return p, nil
	default:
		return "", fmt.Errorf("expected policy of %s, %s or %s, got %s",
			PolicyYieldStrict, PolicyYieldClamp, PolicyWaste, value)
	}
}

// PercentageField returns the name of the yield/waste field for the policy.
func (p Policy) PercentageField() string {
	if p == PolicyWaste {
		return FieldWastePct
	}
	return FieldYieldPct
}
