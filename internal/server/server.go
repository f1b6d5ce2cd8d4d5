package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iwvelando/kpicalc/internal/batch"
	"github.com/iwvelando/kpicalc/internal/config"
	"github.com/iwvelando/kpicalc/internal/kpi"
	"github.com/iwvelando/kpicalc/internal/metrics"
	"github.com/iwvelando/kpicalc/internal/webhook"
	"github.com/iwvelando/kpicalc/pkg/calendar"
	"github.com/iwvelando/kpicalc/pkg/constants"
	"github.com/iwvelando/kpicalc/pkg/format"
	"github.com/iwvelando/kpicalc/pkg/output"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

type handler struct {
	logger          *zap.Logger
	maxBodySize     int64
	version         string
	policy          kpi.Policy
	defaultCurrency string
	notifier        *webhook.Notifier
	now             func() time.Time
}

// NewHandler constructs the HTTP handler that serves the calculation API. A
// nil cfg uses the defaults of a missing server config file.
func NewHandler(logger *zap.Logger, cfg *Config) http.Handler {
	return newHandler(logger, cfg, nil)
}

func newHandler(logger *zap.Logger, cfg *Config, notifier *webhook.Notifier) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg, _ = LoadConfig("")
	}

	policy, err := cfg.Policy()
	if err != nil {
		policy = kpi.DefaultPolicy
	}

	maxBodySize := cfg.BodySizeBytes()
	if maxBodySize <= 0 {
		maxBodySize = constants.DefaultMaxBodySizeBytes
	}

	version := strings.TrimSpace(cfg.Version)
	if version == "" {
		version = "dev"
	}

	defaultCurrency := strings.ToUpper(strings.TrimSpace(cfg.Calculation.DefaultCurrency))
	if defaultCurrency == "" {
		defaultCurrency = constants.DefaultCurrency
	}

	if notifier == nil {
		notifier = webhook.NewNotifier(logger, webhook.WithTimeout(cfg.Webhook.Timeout))
	}

	h := &handler{
		logger:          logger,
		maxBodySize:     maxBodySize,
		version:         version,
		policy:          policy,
		defaultCurrency: defaultCurrency,
		notifier:        notifier,
		now:             time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.instrument)

	r.Post("/api/calculate", h.handleCalculate)
	r.Post("/api/batch", h.handleBatch)
	r.Post("/api/format", h.handleFormat)
	r.Get("/api/currencies", h.handleCurrencies)
	r.Get("/api/working-days", h.handleWorkingDays)
	r.Get("/api/version", h.handleVersion)
	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// instrument records request counts and latency per route pattern.
func (h *handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.ObserveHTTP(route, status, time.Since(start))

		h.logger.Debug("request served",
			zap.String("op", "server.instrument"),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type calculateRequest struct {
	Input  kpi.RawInput `json:"input"`
	Policy string       `json:"policy,omitempty"`
}

type calculateResponse struct {
	Result    kpi.Result              `json:"result"`
	Formatted kpi.Display             `json:"formatted"`
	Delivery  *webhook.DeliveryStatus `json:"delivery,omitempty"`
}

func (h *handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCalculate"

	var req calculateRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}

	policy := h.policy
	if strings.TrimSpace(req.Policy) != "" {
		p, err := kpi.ParsePolicy(req.Policy)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return
		}
		policy = p
	}

	calc := kpi.NewCalculator(h.logger,
		kpi.WithPolicy(policy),
		kpi.WithDefaultCurrency(h.defaultCurrency),
	)

	start := time.Now()
	result, err := calc.Calculate(req.Input)
	if err != nil {
		metrics.ObserveCalculation(string(policy), metrics.ResultInvalid, time.Since(start))
		if kpi.IsValidationError(err) {
			h.respondErrorWithOp(w, http.StatusUnprocessableEntity, err.Error(), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	metrics.ObserveCalculation(string(policy), metrics.ResultSuccess, time.Since(start))

	resp := calculateResponse{Result: result, Formatted: result.Display()}
	if strings.TrimSpace(req.Input.WebhookURL) != "" {
		status := h.notifier.NotifyResult(r.Context(), req.Input, result)
		resp.Delivery = &status
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type formatRequest struct {
	Result   kpi.Result `json:"result"`
	Currency string     `json:"currency"`
}

type formatResponse struct {
	Currency  string      `json:"currency"`
	Formatted kpi.Display `json:"formatted"`
}

func (h *handler) handleFormat(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if !h.decodeJSON(w, r, &req, "server.handleFormat") {
		return
	}

	code := strings.ToUpper(strings.TrimSpace(req.Currency))
	if code == "" {
		code = req.Result.Currency
	}
	if code == "" {
		code = h.defaultCurrency
	}

	h.writeJSON(w, http.StatusOK, formatResponse{Currency: code, Formatted: req.Result.DisplayIn(code)})
}

type batchOutcome struct {
	Name      string                  `json:"name"`
	Result    *kpi.Result             `json:"result,omitempty"`
	Formatted *kpi.Display            `json:"formatted,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Delivery  *webhook.DeliveryStatus `json:"delivery,omitempty"`
}

type batchResponse struct {
	Outcomes []batchOutcome `json:"outcomes"`
	Warnings []string       `json:"warnings,omitempty"`
	Duration string         `json:"duration"`
}

func (h *handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleBatch"
	start := time.Now()

	outputFormat := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	switch outputFormat {
	case "", "json", constants.OutputFormatCSV, constants.OutputFormatXLSX, constants.OutputFormatPDF:
	default:
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", outputFormat), op)
		return
	}

	body, ok := h.readBody(w, r, op)
	if !ok {
		return
	}

	conf, err := config.LoadConfigurationFromReader(bytes.NewReader(body))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	if strings.TrimSpace(conf.Calculation.Policy) == "" {
		conf.Calculation.Policy = string(h.policy)
	}
	if strings.TrimSpace(conf.Calculation.DefaultCurrency) == "" {
		conf.Calculation.DefaultCurrency = h.defaultCurrency
	}
	warnings := conf.ValidateConfiguration()

	notifier := h.notifier
	if conf.Webhook.Timeout > 0 {
		notifier = webhook.NewNotifier(h.logger, webhook.WithTimeout(conf.Webhook.Timeout))
	}

	outcomes, err := batch.Run(r.Context(), h.logger, *conf, notifier)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}

	h.logger.Info("batch calculated",
		zap.String("op", op),
		zap.Int("scenarios", len(outcomes)),
		zap.Duration("duration", time.Since(start)),
	)

	switch outputFormat {
	case constants.OutputFormatCSV:
		h.writeDocument(w, contentTypeCSV, "kpi-results.csv", []byte(output.CsvString(outcomes)))
	case constants.OutputFormatXLSX:
		data, err := output.XLSX(outcomes)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to build workbook: %v", err), op)
			return
		}
		h.writeDocument(w, contentTypeXLSX, constants.DefaultXLSXFile, data)
	case constants.OutputFormatPDF:
		data, err := output.PDF(outcomes, h.now())
		if err != nil {
			h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to build report: %v", err), op)
			return
		}
		h.writeDocument(w, contentTypePDF, constants.DefaultPDFFile, data)
	default:
		h.writeJSON(w, http.StatusOK, batchResponse{
			Outcomes: buildOutcomes(outcomes),
			Warnings: warnings,
			Duration: time.Since(start).String(),
		})
	}
}

func buildOutcomes(outcomes []batch.Outcome) []batchOutcome {
	out := make([]batchOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		item := batchOutcome{Name: o.Name, Delivery: o.Delivery}
		if o.OK() {
			result := o.Result
			display := result.Display()
			item.Result = &result
			item.Formatted = &display
		} else {
			item.Error = o.Err.Error()
		}
		out = append(out, item)
	}
	return out
}

func (h *handler) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"default":    constants.DefaultCurrency,
		"currencies": format.Profiles(),
	})
}

type holidayView struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

type workingDaysResponse struct {
	Year         int           `json:"year"`
	Month        int           `json:"month"`
	CalendarDays int           `json:"calendarDays"`
	WorkingDays  int           `json:"workingDays"`
	Holidays     []holidayView `json:"holidays"`
	Date         string        `json:"date,omitempty"`
	IsHoliday    *bool         `json:"isHoliday,omitempty"`
	IsWorkingDay *bool         `json:"isWorkingDay,omitempty"`
}

// handleWorkingDays reports the working days of ?year=&month=, or of the
// month containing ?date=YYYY-MM-DD together with whether that day is open.
func (h *handler) handleWorkingDays(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleWorkingDays"
	query := r.URL.Query()

	var (
		year  int
		month int
		day   time.Time
		err   error
	)
	if raw := strings.TrimSpace(query.Get("date")); raw != "" {
		day, err = time.Parse(constants.DateLayout, raw)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid date %q, expected %s", raw, constants.DateLayout), op)
			return
		}
		year, month = day.Year(), int(day.Month())
	} else {
		year, err = strconv.Atoi(strings.TrimSpace(query.Get("year")))
		if err != nil || year < 1 || year > 9999 {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid year %q", query.Get("year")), op)
			return
		}
		month, err = strconv.Atoi(strings.TrimSpace(query.Get("month")))
		if err != nil || month < 1 || month > 12 {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid month %q", query.Get("month")), op)
			return
		}
	}

	holidays := calendar.HolidaysIn(year, time.Month(month))
	views := make([]holidayView, 0, len(holidays))
	for _, holiday := range holidays {
		views = append(views, holidayView{Name: holiday.Name, Date: holiday.Date.Format(constants.DateLayout)})
	}

	resp := workingDaysResponse{
		Year:         year,
		Month:        month,
		CalendarDays: calendar.DaysIn(year, time.Month(month)),
		WorkingDays:  calendar.WorkingDaysIn(year, time.Month(month), holidays),
		Holidays:     views,
	}
	if !day.IsZero() {
		holiday := calendar.IsHoliday(day)
		open := !holiday && !calendar.IsWeekend(day)
		resp.Date = day.Format(constants.DateLayout)
		resp.IsHoliday = &holiday
		resp.IsWorkingDay = &open
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readBody reads the request body up to the configured limit, writing the
// error response itself when it fails.
func (h *handler) readBody(w http.ResponseWriter, r *http.Request, op string) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds limit of %d bytes", h.maxBodySize), op)
			return nil, false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to read request body: %v", err), op)
		return nil, false
	}
	return body, true
}

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	body, ok := h.readBody(w, r, op)
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON payload: %v", err), op)
		return false
	}
	return true
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	log := h.logger.Error
	if status < http.StatusInternalServerError {
		log = h.logger.Warn
	}
	log("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *handler) writeDocument(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("failed to write document response", zap.Error(err))
	}
}
