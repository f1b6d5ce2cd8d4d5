// Package testutil provides common utility functions for testing.
package testutil

import (
	"bytes"
	"io"
	"math"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// AssertClose fails the test when got differs from want by more than tolerance.
func AssertClose(t testing.TB, name string, got, want, tolerance float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > tolerance {
		t.Errorf("%s: expected %v, got %v", name, want, got)
	}
}

// CaptureStdout runs fn and returns everything it wrote to os.Stdout.
func CaptureStdout(t testing.TB, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	defer func() { os.Stdout = oldStdout }()
	fn()

	_ = w.Close()
	return <-done
}

// CounterValue returns the value of the counter name carrying exactly the
// given labels in the default registry, or 0 when it has not been recorded.
func CounterValue(t testing.TB, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	if len(m.GetLabel()) != len(labels) {
		return false
	}
	for _, pair := range m.GetLabel() {
		if want, ok := labels[pair.GetName()]; !ok || want != pair.GetValue() {
			return false
		}
	}
	return true
}
