package output

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/iwvelando/kpicalc/internal/batch"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet = "results"
	inputsSheet  = "inputs"
)

// XLSX renders the outcomes as a workbook with a results sheet holding the
// numeric KPIs and an inputs sheet holding the values they were computed from.
func XLSX(outcomes []batch.Outcome) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(inputsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := f.SetSheetRow(resultsSheet, "A1", &[]interface{}{
		"Scenario", "Currency", "Net quantity", "Revenue", "Total cost",
		"Profit", "Margin %", "Profit per unit", "Error", "Webhook",
	}); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(inputsSheet, "A1", &[]interface{}{
		"Scenario", "Policy", "Quantity", "Sell price", "Raw cost",
		"Process cost", "Freight", "Yield %", "Waste %",
	}); err != nil {
		return nil, err
	}

	inputRow := 2
	for i, outcome := range outcomes {
		row := []interface{}{outcome.Name}
		if outcome.OK() {
			r := outcome.Result
			row = append(row, r.Currency, r.NetQty, r.Revenue, r.TotalCost, r.Profit, r.MarginPct, r.ProfitPerUnit, "")
		} else {
			row = append(row, "", nil, nil, nil, nil, nil, nil, outcome.Err.Error())
		}
		if outcome.Delivery != nil {
			row = append(row, outcome.Delivery.Message)
		}
		if err := f.SetSheetRow(resultsSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}

		if !outcome.OK() {
			continue
		}
		in := outcome.Result.Inputs
		if err := f.SetSheetRow(inputsSheet, fmt.Sprintf("A%d", inputRow), &[]interface{}{
			outcome.Name, string(outcome.Result.Policy), in.Quantity, in.SellPrice,
			in.RawCost, in.ProcCost, in.Freight, in.YieldPct, in.WastePct,
		}); err != nil {
			return nil, err
		}
		inputRow++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PDF renders a one-page summary of the outcomes.
func PDF(outcomes []batch.Outcome, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Production KPI Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generated.UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	headers := []string{"Scenario", "Net quantity", "Revenue", "Total cost", "Profit", "Margin", "Per unit"}
	widths := []float64{50, 35, 38, 38, 38, 25, 40}
	pdf.SetFont("Arial", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, outcome := range outcomes {
		pdf.CellFormat(widths[0], 6, tr(outcome.Name), "1", 0, "L", false, 0, "")
		if !outcome.OK() {
			var rest float64
			for _, w := range widths[1:] {
				rest += w
			}
			pdf.CellFormat(rest, 6, tr(outcome.Err.Error()), "1", 0, "L", false, 0, "")
			pdf.Ln(-1)
			continue
		}
		d := outcome.Result.Display()
		for i, v := range []string{d.NetQty, d.Revenue, d.TotalCost, d.Profit, d.MarginPct, d.ProfitPerUnit} {
			pdf.CellFormat(widths[i+1], 6, tr(v), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes data to path, creating or truncating it.
func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
