// Package batch runs every active scenario of a configuration through the
// calculator and, when a scenario names a webhook, forwards its result.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/iwvelando/kpicalc/internal/config"
	"github.com/iwvelando/kpicalc/internal/kpi"
	"github.com/iwvelando/kpicalc/internal/metrics"
	"github.com/iwvelando/kpicalc/internal/webhook"
	"go.uber.org/zap"
)

// Outcome holds the calculation and delivery result of one scenario. Err is
// set instead of Result when the scenario's input was rejected.
type Outcome struct {
	Name     string
	Input    kpi.RawInput
	Result   kpi.Result
	Err      error
	Delivery *webhook.DeliveryStatus
}

// OK reports whether the scenario produced a result.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Run calculates all active scenarios. Validation errors are recorded per
// scenario and do not stop the run; notifier may be nil to skip webhooks.
func Run(ctx context.Context, logger *zap.Logger, conf config.Configuration, notifier *webhook.Notifier) ([]Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	policy, err := conf.Policy()
	if err != nil {
		return nil, fmt.Errorf("invalid calculation policy: %w", err)
	}
	calc := kpi.NewCalculator(logger,
		kpi.WithPolicy(policy),
		kpi.WithDefaultCurrency(conf.DefaultCurrency()),
	)

	var outcomes []Outcome
	for _, scenario := range conf.Scenarios {
		if !scenario.Active {
			logger.Debug(fmt.Sprintf("skipping scenario %s because it is inactive", scenario.Name),
				zap.String("op", "batch.Run"),
			)
			continue
		}
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		outcome := Outcome{Name: scenario.Name, Input: scenario.Input}

		start := time.Now()
		result, err := calc.Calculate(scenario.Input)
		if err != nil {
			metrics.ObserveCalculation(string(policy), metrics.ResultInvalid, time.Since(start))
			logger.Warn("scenario rejected",
				zap.String("op", "batch.Run"),
				zap.String("scenario", scenario.Name),
				zap.Error(err),
			)
			outcome.Err = err
			outcomes = append(outcomes, outcome)
			continue
		}
		metrics.ObserveCalculation(string(policy), metrics.ResultSuccess, time.Since(start))
		outcome.Result = result

		if notifier != nil && scenario.Input.WebhookURL != "" {
			status := notifier.NotifyResult(ctx, scenario.Input, result)
			outcome.Delivery = &status
			logger.Info(status.Message,
				zap.String("op", "batch.Run"),
				zap.String("scenario", scenario.Name),
			)
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// Find returns the outcome named name, or nil.
func Find(outcomes []Outcome, name string) *Outcome {
	for i := range outcomes {
		if outcomes[i].Name == name {
			return &outcomes[i]
		}
	}
	return nil
}
