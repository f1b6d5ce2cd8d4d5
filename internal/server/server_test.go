package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/iwvelando/kpicalc/internal/kpi"
	"github.com/iwvelando/kpicalc/internal/metrics"
	"github.com/iwvelando/kpicalc/internal/webhook"
	"github.com/iwvelando/kpicalc/pkg/constants"
	"github.com/iwvelando/kpicalc/pkg/format"
	"github.com/iwvelando/kpicalc/pkg/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	return newHandler(zap.NewNop(), cfg, webhook.NewNotifier(zap.NewNop()))
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}

const lowYieldInput = `{"quantity":"1000","sellPrice":"10","rawCost":"4","procCost":"1","yieldPct":"80","currency":"USD"}`

func TestHandleCalculateSuccess(t *testing.T) {
	handler := newTestHandler(t, nil)

	rr := doRequest(t, handler, http.MethodPost, "/api/calculate", `{"input":`+lowYieldInput+`}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	var resp calculateResponse
	decodeBody(t, rr, &resp)

	testutil.AssertClose(t, "netQty", resp.Result.NetQty, 800, constants.FloatTolerance)
	testutil.AssertClose(t, "profit", resp.Result.Profit, 4000, constants.FloatTolerance)
	if resp.Result.Policy != kpi.PolicyYieldStrict {
		t.Errorf("expected default policy, got %s", resp.Result.Policy)
	}
	if resp.Formatted.Profit != "$4,000.00" {
		t.Errorf("expected formatted profit $4,000.00, got %q", resp.Formatted.Profit)
	}
	if resp.Delivery != nil {
		t.Errorf("expected no delivery without a webhook URL, got %+v", resp.Delivery)
	}
}

func TestHandleCalculateDeliversWebhook(t *testing.T) {
	var calls int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var payload webhook.Payload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("webhook received invalid JSON: %v", err)
		}
		if payload.Raw.WebhookURL != "" {
			t.Errorf("webhook payload should not echo the URL")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	handler := newTestHandler(t, nil)
	input := strings.TrimSuffix(lowYieldInput, "}") + `,"webhookUrl":"` + hook.URL + `"}`

	rr := doRequest(t, handler, http.MethodPost, "/api/calculate", `{"input":`+input+`}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp calculateResponse
	decodeBody(t, rr, &resp)
	if resp.Delivery == nil || !resp.Delivery.Delivered {
		t.Fatalf("expected a delivered status, got %+v", resp.Delivery)
	}
	if resp.Delivery.Message != constants.WebhookStatusPosted {
		t.Errorf("expected %q, got %q", constants.WebhookStatusPosted, resp.Delivery.Message)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected exactly one webhook call, got %d", calls)
	}
}

func TestHandleCalculateRejectsNonHTTPWebhook(t *testing.T) {
	handler := newTestHandler(t, nil)
	input := strings.TrimSuffix(lowYieldInput, "}") + `,"webhookUrl":"ftp://127.0.0.1/hook"}`

	rr := doRequest(t, handler, http.MethodPost, "/api/calculate", `{"input":`+input+`}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp calculateResponse
	decodeBody(t, rr, &resp)
	if resp.Delivery == nil || resp.Delivery.Delivered {
		t.Fatalf("expected an undelivered status, got %+v", resp.Delivery)
	}
	if !strings.HasPrefix(resp.Delivery.Message, constants.WebhookStatusFailed) || !strings.Contains(resp.Delivery.Message, "http or https") {
		t.Errorf("expected scheme rejection message, got %q", resp.Delivery.Message)
	}
}

func TestHandleCalculateErrors(t *testing.T) {
	small, _ := LoadConfig("")
	small.SetBodySizeBytes(32)

	tests := []struct {
		name     string
		cfg      *Config
		body     string
		status   int
		contains string
	}{
		{
			name:     "validation error",
			body:     `{"input":{"quantity":"abc","sellPrice":"10","rawCost":"4","procCost":"1"}}`,
			status:   http.StatusUnprocessableEntity,
			contains: `Please enter a valid number for \"quantity\".`,
		},
		{
			name:     "yield out of range",
			body:     `{"input":{"quantity":"1","sellPrice":"10","rawCost":"4","procCost":"1","yieldPct":"120"}}`,
			status:   http.StatusUnprocessableEntity,
			contains: "Yield (%) must be between 0 and 100.",
		},
		{
			name:     "malformed JSON",
			body:     `{"input":`,
			status:   http.StatusBadRequest,
			contains: "invalid JSON payload",
		},
		{
			name:     "unknown policy",
			body:     `{"input":` + lowYieldInput + `,"policy":"generous"}`,
			status:   http.StatusBadRequest,
			contains: "generous",
		},
		{
			name:     "body too large",
			cfg:      small,
			body:     `{"input":` + lowYieldInput + `}`,
			status:   http.StatusRequestEntityTooLarge,
			contains: "exceeds limit of 32 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, newTestHandler(t, tt.cfg), http.MethodPost, "/api/calculate", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tt.contains) {
				t.Errorf("expected body to contain %q, got %s", tt.contains, rr.Body.String())
			}
		})
	}
}

func TestHandleCalculatePolicyOverride(t *testing.T) {
	handler := newTestHandler(t, nil)
	body := `{"policy":"waste","input":{"quantity":"1000","sellPrice":"10","rawCost":"4","procCost":"1","wastePct":"20"}}`

	rr := doRequest(t, handler, http.MethodPost, "/api/calculate", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp calculateResponse
	decodeBody(t, rr, &resp)
	if resp.Result.Policy != kpi.PolicyWaste {
		t.Errorf("expected waste policy, got %s", resp.Result.Policy)
	}
	testutil.AssertClose(t, "netQty", resp.Result.NetQty, 800, constants.FloatTolerance)
}

func TestHandleCalculateUsesConfiguredDefaults(t *testing.T) {
	cfg, _ := LoadConfig("")
	cfg.Calculation.Policy = "yield-clamp"
	cfg.Calculation.DefaultCurrency = "gbp"

	body := `{"input":{"quantity":"100","sellPrice":"10","rawCost":"4","procCost":"1","yieldPct":"150"}}`
	rr := doRequest(t, newTestHandler(t, cfg), http.MethodPost, "/api/calculate", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp calculateResponse
	decodeBody(t, rr, &resp)
	if resp.Result.Currency != "GBP" {
		t.Errorf("expected default currency GBP, got %s", resp.Result.Currency)
	}
	testutil.AssertClose(t, "netQty", resp.Result.NetQty, 100, constants.FloatTolerance)
}

func TestHandleCalculateMethodNotAllowed(t *testing.T) {
	rr := doRequest(t, newTestHandler(t, nil), http.MethodGet, "/api/calculate", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestHandleFormat(t *testing.T) {
	handler := newTestHandler(t, nil)

	rr := doRequest(t, handler, http.MethodPost, "/api/calculate", `{"input":`+lowYieldInput+`}`)
	var calc calculateResponse
	decodeBody(t, rr, &calc)

	payload, err := json.Marshal(formatRequest{Result: calc.Result, Currency: "gbp"})
	if err != nil {
		t.Fatalf("failed to encode request: %v", err)
	}

	rr = doRequest(t, handler, http.MethodPost, "/api/format", string(payload))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp formatResponse
	decodeBody(t, rr, &resp)
	if resp.Currency != "GBP" {
		t.Errorf("expected currency GBP, got %s", resp.Currency)
	}
	if resp.Formatted.Profit != "£4,000.00" {
		t.Errorf("expected £4,000.00, got %q", resp.Formatted.Profit)
	}
	if resp.Formatted.NetQty != "800.00 kg" {
		t.Errorf("expected 800.00 kg, got %q", resp.Formatted.NetQty)
	}

	// An empty currency keeps the result's own currency.
	payload, _ = json.Marshal(formatRequest{Result: calc.Result})
	rr = doRequest(t, handler, http.MethodPost, "/api/format", string(payload))
	decodeBody(t, rr, &resp)
	if resp.Currency != "USD" || resp.Formatted.Profit != "$4,000.00" {
		t.Errorf("expected USD formatting, got %+v", resp)
	}
}

func TestHandleCurrencies(t *testing.T) {
	rr := doRequest(t, newTestHandler(t, nil), http.MethodGet, "/api/currencies", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp struct {
		Default    string                   `json:"default"`
		Currencies []format.CurrencyProfile `json:"currencies"`
	}
	decodeBody(t, rr, &resp)
	if resp.Default != constants.DefaultCurrency {
		t.Errorf("expected default %s, got %s", constants.DefaultCurrency, resp.Default)
	}
	if len(resp.Currencies) != len(format.Profiles()) {
		t.Errorf("expected %d profiles, got %d", len(format.Profiles()), len(resp.Currencies))
	}
}

func TestHandleWorkingDays(t *testing.T) {
	handler := newTestHandler(t, nil)

	rr := doRequest(t, handler, http.MethodGet, "/api/working-days?year=2025&month=4", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp workingDaysResponse
	decodeBody(t, rr, &resp)
	if resp.WorkingDays != 18 {
		t.Errorf("expected 18 working days in April 2025, got %d", resp.WorkingDays)
	}

	expected := map[string]string{
		"Maundy Thursday":     "2025-04-17",
		"Good Friday":         "2025-04-18",
		"Easter Monday":       "2025-04-21",
		"First Day of Summer": "2025-04-24",
	}
	found := make(map[string]string)
	for _, h := range resp.Holidays {
		found[h.Name] = h.Date
	}
	for name, date := range expected {
		if found[name] != date {
			t.Errorf("expected %s on %s, got %q", name, date, found[name])
		}
	}

	for _, target := range []string{
		"/api/working-days?year=2025",
		"/api/working-days?year=2025&month=13",
		"/api/working-days?year=abc&month=4",
		"/api/working-days?month=4",
	} {
		if rr := doRequest(t, handler, http.MethodGet, target, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("GET %s: expected status 400, got %d", target, rr.Code)
		}
	}
}

func TestHandleWorkingDaysDate(t *testing.T) {
	handler := newTestHandler(t, nil)

	tests := []struct {
		name    string
		date    string
		holiday bool
		open    bool
	}{
		{"Maundy Thursday", "2025-04-17", true, false},
		{"Ordinary Tuesday", "2025-04-15", false, true},
		{"Saturday", "2025-04-12", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, handler, http.MethodGet, "/api/working-days?date="+tt.date, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}

			var resp workingDaysResponse
			decodeBody(t, rr, &resp)
			if resp.Year != 2025 || resp.Month != 4 || resp.CalendarDays != 30 || resp.WorkingDays != 18 {
				t.Errorf("unexpected month summary: %+v", resp)
			}
			if resp.Date != tt.date {
				t.Errorf("expected date %s, got %q", tt.date, resp.Date)
			}
			if resp.IsHoliday == nil || *resp.IsHoliday != tt.holiday {
				t.Errorf("expected isHoliday %v, got %v", tt.holiday, resp.IsHoliday)
			}
			if resp.IsWorkingDay == nil || *resp.IsWorkingDay != tt.open {
				t.Errorf("expected isWorkingDay %v, got %v", tt.open, resp.IsWorkingDay)
			}
		})
	}

	if rr := doRequest(t, handler, http.MethodGet, "/api/working-days?date=17.04.2025", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for malformed date, got %d", rr.Code)
	}
}

func TestHandleVersion(t *testing.T) {
	rr := doRequest(t, newTestHandler(t, nil), http.MethodGet, "/api/version", "")
	var resp map[string]string
	decodeBody(t, rr, &resp)
	if resp["version"] != "dev" {
		t.Errorf("expected default version dev, got %q", resp["version"])
	}

	cfg, _ := LoadConfig("")
	cfg.Version = " 1.2.3 "
	rr = doRequest(t, newTestHandler(t, cfg), http.MethodGet, "/api/version", "")
	decodeBody(t, rr, &resp)
	if resp["version"] != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", resp["version"])
	}
}

func TestHealthAndMetrics(t *testing.T) {
	metrics.Init()
	handler := NewHandler(nil, nil)

	healthz := map[string]string{"route": "/healthz", "code": "200"}
	before := testutil.CounterValue(t, "kpicalc_http_requests_total", healthz)
	rr := doRequest(t, handler, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if after := testutil.CounterValue(t, "kpicalc_http_requests_total", healthz); after != before+1 {
		t.Errorf("expected healthz counter to increase by 1, got %v -> %v", before, after)
	}

	rr = doRequest(t, handler, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "kpicalc_http_requests_total") {
		t.Errorf("expected kpicalc metrics in /metrics output")
	}
}

const batchYAML = `calculation:
  policy: yield-strict
scenarios:
  - name: Low yield
    active: true
    input:
      quantity: "1000"
      sellPrice: "10"
      rawCost: "4"
      procCost: "1"
      yieldPct: "80"
      currency: USD
  - name: Broken
    active: true
    input:
      quantity: "lots"
      sellPrice: "10"
      rawCost: "4"
      procCost: "1"
  - name: Skipped
    active: false
    input:
      quantity: "1"
`

func TestHandleBatchJSON(t *testing.T) {
	rr := doRequest(t, newTestHandler(t, nil), http.MethodPost, "/api/batch", batchYAML)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp batchResponse
	decodeBody(t, rr, &resp)
	if len(resp.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(resp.Outcomes))
	}

	first := resp.Outcomes[0]
	if first.Name != "Low yield" || first.Result == nil || first.Formatted == nil {
		t.Fatalf("unexpected first outcome %+v", first)
	}
	testutil.AssertClose(t, "profit", first.Result.Profit, 4000, constants.FloatTolerance)
	if first.Formatted.Revenue != "$8,000.00" {
		t.Errorf("expected $8,000.00, got %q", first.Formatted.Revenue)
	}

	second := resp.Outcomes[1]
	if second.Result != nil || !strings.Contains(second.Error, "quantity") {
		t.Errorf("expected a validation error for the broken scenario, got %+v", second)
	}
}

func TestHandleBatchDocuments(t *testing.T) {
	handler := newTestHandler(t, nil)

	tests := []struct {
		format      string
		contentType string
		prefix      []byte
	}{
		{"csv", contentTypeCSV, []byte("scenario,currency")},
		{"xlsx", contentTypeXLSX, []byte("PK")},
		{"pdf", contentTypePDF, []byte("%PDF-")},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			rr := doRequest(t, handler, http.MethodPost, "/api/batch?format="+tt.format, batchYAML)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}
			if ct := rr.Header().Get("Content-Type"); ct != tt.contentType {
				t.Errorf("expected content type %q, got %q", tt.contentType, ct)
			}
			if !strings.HasPrefix(rr.Header().Get("Content-Disposition"), "attachment;") {
				t.Errorf("expected an attachment disposition, got %q", rr.Header().Get("Content-Disposition"))
			}
			body, _ := io.ReadAll(rr.Body)
			if !bytes.HasPrefix(body, tt.prefix) {
				t.Errorf("unexpected document prefix %q", body[:min(len(body), 16)])
			}
		})
	}
}

func TestHandleBatchErrors(t *testing.T) {
	handler := newTestHandler(t, nil)

	if rr := doRequest(t, handler, http.MethodPost, "/api/batch?format=docx", batchYAML); rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unsupported format, got %d", rr.Code)
	}
	if rr := doRequest(t, handler, http.MethodPost, "/api/batch", "scenarios: [unterminated"); rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for invalid YAML, got %d", rr.Code)
	}
	if rr := doRequest(t, handler, http.MethodPost, "/api/batch", "calculation:\n  policy: generous\n"); rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for an unknown policy, got %d", rr.Code)
	}
}
