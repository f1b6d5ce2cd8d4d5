package kpi

import (
	"github.com/iwvelando/kpicalc/pkg/constants"
	"github.com/iwvelando/kpicalc/pkg/format"
)

// Display holds the human-readable rendering of a Result.
type Display struct {
	Currency      string `json:"currency"`
	NetQty        string `json:"netQty"`
	Revenue       string `json:"revenue"`
	TotalCost     string `json:"totalCost"`
	Profit        string `json:"profit"`
	MarginPct     string `json:"marginPct"`
	ProfitPerUnit string `json:"profitPerUnit"`
}

// Display renders the result in its own currency.
func (r Result) Display() Display {
	return r.DisplayIn(r.Currency)
}

// DisplayIn renders the result in another currency's display profile. Only
// the presentation changes; amounts are not converted.
func (r Result) DisplayIn(currency string) Display {
	perUnit := " /" + constants.QuantityUnit
	return Display{
		Currency:      currency,
		NetQty:        format.Number(r.NetQty, constants.DefaultNumberDigits) + " " + constants.QuantityUnit,
		Revenue:       format.Currency(r.Revenue, currency),
		TotalCost:     format.Currency(r.TotalCost, currency),
		Profit:        format.Currency(r.Profit, currency),
		MarginPct:     format.Number(r.MarginPct, constants.MarginDigits) + " %",
		ProfitPerUnit: format.Currency(r.ProfitPerUnit, currency) + perUnit,
	}
}
