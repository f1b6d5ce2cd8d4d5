// Package output provides utilities for formatting and displaying batch
// calculation results.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/iwvelando/kpicalc/internal/batch"
	"github.com/iwvelando/kpicalc/pkg/constants"
)

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(outcomes []batch.Outcome) {
	Pretty(os.Stdout, outcomes)
}

// Pretty writes the human-readable table to w.
func Pretty(w io.Writer, outcomes []batch.Outcome) {
	for i, outcome := range outcomes {
		fmt.Fprintf(w, "--- Results for scenario %s ---\n", outcome.Name)
		if !outcome.OK() {
			fmt.Fprintf(w, "%-15s | %s\n", "Error", outcome.Err.Error())
		} else {
			d := outcome.Result.Display()
			fmt.Fprintf(w, "%-15s | %s\n", "Currency", d.Currency)
			fmt.Fprintf(w, "%-15s | %s\n", "Net quantity", d.NetQty)
			fmt.Fprintf(w, "%-15s | %s\n", "Revenue", d.Revenue)
			fmt.Fprintf(w, "%-15s | %s\n", "Total cost", d.TotalCost)
			fmt.Fprintf(w, "%-15s | %s\n", "Profit", d.Profit)
			fmt.Fprintf(w, "%-15s | %s\n", "Margin", d.MarginPct)
			fmt.Fprintf(w, "%-15s | %s\n", "Profit per unit", d.ProfitPerUnit)
		}
		if outcome.Delivery != nil {
			fmt.Fprintf(w, "%-15s | %s\n", "Webhook", outcome.Delivery.Message)
		}
		if len(outcomes) > 1 && i < len(outcomes)-1 {
			fmt.Fprintf(w, "\n")
		}
	}
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(outcomes []batch.Outcome) {
	fmt.Print(CsvString(outcomes))
}

var csvHeader = []string{
	"scenario", "currency", "netQty", "revenue", "totalCost", "profit",
	"marginPct", "profitPerUnit", "error", "webhook",
}

// CsvString renders the outcomes as CSV with raw numeric values.
func CsvString(outcomes []batch.Outcome) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(csvHeader)
	for _, outcome := range outcomes {
		_ = w.Write(csvRecord(outcome))
	}
	w.Flush()
	return b.String()
}

func csvRecord(outcome batch.Outcome) []string {
	record := make([]string, len(csvHeader))
	record[0] = outcome.Name
	if outcome.OK() {
		r := outcome.Result
		record[1] = r.Currency
		for i, v := range []float64{r.NetQty, r.Revenue, r.TotalCost, r.Profit, r.MarginPct, r.ProfitPerUnit} {
			record[2+i] = strconv.FormatFloat(v, 'f', constants.DefaultNumberDigits, 64)
		}
	} else {
		record[8] = outcome.Err.Error()
	}
	if outcome.Delivery != nil {
		record[9] = outcome.Delivery.Message
	}
	return record
}
