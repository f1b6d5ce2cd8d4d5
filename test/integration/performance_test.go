package integration

import (
	"context"
	"testing"
	"time"

	"github.com/iwvelando/kpicalc/internal/batch"
	"github.com/iwvelando/kpicalc/internal/config"
	"github.com/iwvelando/kpicalc/internal/kpi"
	"go.uber.org/zap"
)

func manyScenarios(n int) config.Configuration {
	conf := config.Configuration{}
	for i := 0; i < n; i++ {
		conf.Scenarios = append(conf.Scenarios, config.Scenario{
			Name:   "scenario",
			Active: true,
			Input:  kpi.RawInput{Quantity: "1.234,5", SellPrice: "10", RawCost: "4", ProcCost: "1", YieldPct: "80"},
		})
	}
	return conf
}

// TestPerformance checks that a large batch stays well inside interactive latency.
func TestPerformance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping performance test in short mode")
	}

	conf := manyScenarios(10000)
	start := time.Now()
	outcomes, err := batch.Run(context.Background(), zap.NewNop(), conf, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	elapsed := time.Since(start)

	if len(outcomes) != 10000 {
		t.Fatalf("expected 10000 outcomes, got %d", len(outcomes))
	}
	if elapsed > 5*time.Second {
		t.Errorf("batch of 10000 scenarios took %s", elapsed)
	}
	t.Logf("calculated %d scenarios in %s", len(outcomes), elapsed)
}

func BenchmarkCalculate(b *testing.B) {
	calc := kpi.NewCalculator(zap.NewNop())
	in := kpi.RawInput{Quantity: "1.234,5", SellPrice: "10", RawCost: "4", ProcCost: "1", YieldPct: "80"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := calc.Calculate(in); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDisplay(b *testing.B) {
	result, err := kpi.Calculate(kpi.RawInput{Quantity: "1000", SellPrice: "10", RawCost: "4", ProcCost: "1", Currency: "ISK"})
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = result.Display()
	}
}
