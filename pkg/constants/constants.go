// Package constants provides shared constants for the kpicalc application.
package constants

// DateLayout is the calendar date format used in API responses and logs.
const DateLayout = "2006-01-02"

// Calculation constants
const (
	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// DefaultYieldPct is the yield applied when the field is left empty
	DefaultYieldPct = "100"

	// DefaultWastePct is the waste applied when the field is left empty
	DefaultWastePct = "0"

	// DefaultFreight is the per-unit freight applied when the field is left empty
	DefaultFreight = "0"

	// DefaultNumberDigits is the default number of fractional digits for plain numbers
	DefaultNumberDigits = 2

	// MarginDigits is the number of fractional digits used to display the margin
	MarginDigits = 1

	// QuantityUnit is the display unit appended to quantities
	QuantityUnit = "kg"
)

// Currency constants
const (
	// DefaultCurrency is the currency profile used for unknown or empty codes
	DefaultCurrency = "EUR"
)

// Comparison constants
const (
	// FloatTolerance is the tolerance for comparing computed floating-point values
	FloatTolerance = 1e-9
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatXLSX is the spreadsheet output format
	OutputFormatXLSX = "xlsx"

	// OutputFormatPDF is the printable report output format
	OutputFormatPDF = "pdf"

	// DefaultXLSXFile is the file written for xlsx output when none is configured
	DefaultXLSXFile = "kpi-results.xlsx"

	// DefaultPDFFile is the file written for pdf output when none is configured
	DefaultPDFFile = "kpi-results.pdf"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum request body size (256 KB)
	DefaultMaxBodySizeBytes int64 = 256 * 1024
)

// Webhook status messages
const (
	WebhookStatusPosted  = "Posted results to webhook"
	WebhookStatusError   = "Webhook error"
	WebhookStatusFailed  = "Webhook failed"
	WebhookStatusSkipped = "No webhook configured"
)
