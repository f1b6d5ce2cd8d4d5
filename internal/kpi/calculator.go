package kpi

import (
	"strings"

	"github.com/iwvelando/kpicalc/pkg/constants"
	"github.com/iwvelando/kpicalc/pkg/mathutil"
	"github.com/iwvelando/kpicalc/pkg/numparse"
	"go.uber.org/zap"
)

// Result is the outcome of one calculation. A new calculation produces a new
// Result; nothing is updated in place.
type Result struct {
	Currency      string      `json:"currency"`
	Policy        Policy      `json:"policy"`
	NetQty        float64     `json:"netQty"`
	Revenue       float64     `json:"revenue"`
	TotalCost     float64     `json:"totalCost"`
	Profit        float64     `json:"profit"`
	MarginPct     float64     `json:"marginPct"`
	ProfitPerUnit float64     `json:"profitPerUnit"`
	Inputs        ParsedInput `json:"inputs"`
}

// Calculator validates RawInput and derives a Result under one policy.
type Calculator struct {
	logger          *zap.Logger
	policy          Policy
	defaultCurrency string
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithPolicy selects the yield/waste policy.
func WithPolicy(policy Policy) Option {
	return func(c *Calculator) {
		if policy != "" {
			c.policy = policy
		}
	}
}

// WithDefaultCurrency sets the currency used when the input leaves it empty.
func WithDefaultCurrency(code string) Option {
	return func(c *Calculator) {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			c.defaultCurrency = code
		}
	}
}

// NewCalculator constructs a Calculator. A nil logger disables logging.
func NewCalculator(logger *zap.Logger, opts ...Option) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Calculator{
		logger:          logger,
		policy:          DefaultPolicy,
		defaultCurrency: constants.DefaultCurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the calculator's yield/waste policy.
func (c *Calculator) Policy() Policy {
	return c.policy
}

// Calculate is a shortcut for a default Calculator without logging.
func Calculate(in RawInput) (Result, error) {
	return NewCalculator(nil).Calculate(in)
}

type parsedField struct {
	name  string
	value float64
	ok    bool
}

// Calculate validates in and computes the KPIs. Any invalid field rejects the
// whole calculation with a *ValidationError.
func (c *Calculator) Calculate(in RawInput) (Result, error) {
	fields, pct := c.parse(in)

	percentage := pct.value
	switch c.policy {
	case PolicyYieldStrict:
		// Non-numeric yields are reported by the field check below.
		if pct.ok && (percentage < 0 || percentage > constants.PercentageMultiplier) {
			err := yieldOutOfRange()
			c.reject(err)
			return Result{}, err
		}
	case PolicyYieldClamp:
		if pct.ok {
			percentage = mathutil.Clamp(percentage, 0, constants.PercentageMultiplier)
		}
	}

	for _, f := range append(fields, pct) {
		if !f.ok {
			err := invalidField(f.name)
			c.reject(err)
			return Result{}, err
		}
	}

	inputs := ParsedInput{
		Quantity:  fields[0].value,
		SellPrice: fields[1].value,
		RawCost:   fields[2].value,
		ProcCost:  fields[3].value,
		Freight:   fields[4].value,
	}
	var factor float64
	if c.policy == PolicyWaste {
		inputs.WastePct = percentage
		inputs.YieldPct = constants.PercentageMultiplier - percentage
		factor = 1 - mathutil.PercentageToFactor(percentage)
	} else {
		inputs.YieldPct = percentage
		inputs.WastePct = constants.PercentageMultiplier - percentage
		factor = mathutil.PercentageToFactor(percentage)
	}

	result := compute(inputs, factor)
	result.Policy = c.policy
	result.Currency = c.currency(in.Currency)

	c.logger.Debug("kpi calculated",
		zap.String("op", "kpi.Calculate"),
		zap.String("policy", string(c.policy)),
		zap.String("currency", result.Currency),
		zap.Float64("netQty", result.NetQty),
		zap.Float64("profit", result.Profit),
	)
	return result, nil
}

func (c *Calculator) parse(in RawInput) ([]parsedField, parsedField) {
	field := func(name, text string) parsedField {
		v, ok := numparse.Parse(text)
		return parsedField{name: name, value: v, ok: ok}
	}
	fieldOr := func(name, text, def string) parsedField {
		v, ok := numparse.ParseOr(text, def)
		return parsedField{name: name, value: v, ok: ok}
	}

	fields := []parsedField{
		field(FieldQuantity, in.Quantity),
		field(FieldSellPrice, in.SellPrice),
		field(FieldRawCost, in.RawCost),
		field(FieldProcCost, in.ProcCost),
		fieldOr(FieldFreight, in.Freight, constants.DefaultFreight),
	}

	var pct parsedField
	if c.policy == PolicyWaste {
		pct = fieldOr(FieldWastePct, in.WastePct, constants.DefaultWastePct)
	} else {
		pct = fieldOr(FieldYieldPct, in.YieldPct, constants.DefaultYieldPct)
	}
	return fields, pct
}

// compute applies the costing formulas. yieldFactor is the retained fraction
// of the input quantity; the net quantity never drops below zero.
func compute(in ParsedInput, yieldFactor float64) Result {
	netQty := mathutil.Max(0, in.Quantity*yieldFactor)
	revenue := netQty * in.SellPrice
	totalCost := netQty * in.UnitCost()
	profit := revenue - totalCost

	return Result{
		NetQty:        netQty,
		Revenue:       revenue,
		TotalCost:     totalCost,
		Profit:        profit,
		MarginPct:     mathutil.CalculatePercentage(profit, revenue),
		ProfitPerUnit: mathutil.SafeDivide(profit, netQty),
		Inputs:        in,
	}
}

func (c *Calculator) currency(code string) string {
	if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
		return code
	}
	return c.defaultCurrency
}

func (c *Calculator) reject(err *ValidationError) {
	c.logger.Debug("kpi calculation rejected",
		zap.String("op", "kpi.Calculate"),
		zap.String("policy", string(c.policy)),
		zap.String("field", err.Field),
		zap.String("error", err.Message),
	)
}
