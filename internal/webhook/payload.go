package webhook

import (
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/kpicalc/internal/kpi"
	"github.com/iwvelando/kpicalc/pkg/format"
)

// Payload is the JSON document posted to a webhook.
type Payload struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Locale    string       `json:"locale"`
	Currency  string       `json:"currency"`
	Result    kpi.Result   `json:"result"`
	Display   kpi.Display  `json:"display"`
	Raw       kpi.RawInput `json:"rawInput"`
}

// NewPayload builds the payload for result. The webhook URL is removed from
// the echoed raw input.
func NewPayload(result kpi.Result, raw kpi.RawInput, now time.Time) Payload {
	profile, _ := format.LookupProfile(result.Currency)
	raw.WebhookURL = ""
	return Payload{
		ID:        uuid.NewString(),
		Timestamp: now.UTC(),
		Locale:    profile.Locale,
		Currency:  result.Currency,
		Result:    result,
		Display:   result.Display(),
		Raw:       raw,
	}
}
