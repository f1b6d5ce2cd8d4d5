package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateWebhookURL checks that raw is an absolute http or https URL. An
// empty value is valid and means no webhook is configured.
func ValidateWebhookURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("webhook URL %q has no host", raw)
	}
	return nil
}
