// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iwvelando/kpicalc/internal/kpi"
	"github.com/iwvelando/kpicalc/pkg/constants"
	"github.com/iwvelando/kpicalc/pkg/format"
	"github.com/iwvelando/kpicalc/pkg/validation"
	"github.com/spf13/viper"
	"golang.org/x/text/currency"
)

// Configuration holds all configuration for a kpicalc batch run.
type Configuration struct {
	Logging     LoggingConfig     `yaml:"logging,omitempty"`
	Output      OutputConfig      `yaml:"output,omitempty"`
	Calculation CalculationConfig `yaml:"calculation,omitempty"`
	Webhook     WebhookConfig     `yaml:"webhook,omitempty"`
	Scenarios   []Scenario        `yaml:"scenarios"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, xlsx
	File   string `yaml:"file,omitempty"`   // destination for xlsx output
}

// CalculationConfig selects how inputs are interpreted.
type CalculationConfig struct {
	Policy          string `yaml:"policy,omitempty"`          // yield-strict, yield-clamp, waste
	DefaultCurrency string `yaml:"defaultCurrency,omitempty"` // used when a scenario omits currency
}

// WebhookConfig holds outbound webhook options.
type WebhookConfig struct {
	Timeout time.Duration `yaml:"timeout,omitempty"` // zero keeps the platform default
}

// Scenario is one named set of form inputs.
type Scenario struct {
	Name   string       `yaml:"name"`
	Active bool         `yaml:"active"`
	Input  kpi.RawInput `yaml:"input"`
}

// envPrefix namespaces environment overrides, e.g. KPICALC_CALCULATION_POLICY.
const envPrefix = "kpicalc"

// envKeys are the settings that may be overridden from the environment.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.outputFile",
	"output.format",
	"output.file",
	"calculation.policy",
	"calculation.defaultCurrency",
	"webhook.timeout",
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Settings in envKeys can be overridden by environment
// variables named KPICALC_ followed by the upper-cased key with dots replaced
// by underscores.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment for %s, %s", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	if _, err := configuration.Policy(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// Policy returns the configured yield/waste policy.
func (c *Configuration) Policy() (kpi.Policy, error) {
	return kpi.ParsePolicy(c.Calculation.Policy)
}

// DefaultCurrency returns the configured default currency code.
func (c *Configuration) DefaultCurrency() string {
	if code := strings.ToUpper(strings.TrimSpace(c.Calculation.DefaultCurrency)); code != "" {
		return code
	}
	return constants.DefaultCurrency
}

// ActiveScenarios returns the scenarios marked active, in file order.
func (c *Configuration) ActiveScenarios() []Scenario {
	var active []Scenario
	for _, scenario := range c.Scenarios {
		if scenario.Active {
			active = append(active, scenario)
		}
	}
	return active
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings. Problems that would stop a run are reported by
// LoadConfiguration instead.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if len(c.ActiveScenarios()) == 0 {
		warnings = append(warnings, "No active scenarios configured - nothing will be calculated")
	}

	if w := currencyWarning("Default currency", c.Calculation.DefaultCurrency); w != "" {
		warnings = append(warnings, w)
	}

	policy, _ := c.Policy()
	seen := make(map[string]struct{})
	for i, scenario := range c.Scenarios {
		name := strings.TrimSpace(scenario.Name)
		if name == "" {
			warnings = append(warnings, fmt.Sprintf("Scenario #%d has no name", i+1))
		} else if _, dup := seen[name]; dup {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s' is defined more than once", name))
		}
		seen[name] = struct{}{}

		if !scenario.Active {
			continue
		}
		if w := currencyWarning(fmt.Sprintf("Scenario '%s' currency", name), scenario.Input.Currency); w != "" {
			warnings = append(warnings, w)
		}
		if err := validation.ValidateWebhookURL(scenario.Input.WebhookURL); err != nil {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s': %v - delivery will fail", name, err))
		}
		if policy == kpi.PolicyWaste && strings.TrimSpace(scenario.Input.YieldPct) != "" {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s' sets yieldPct but the waste policy reads wastePct", name))
		}
		if policy != kpi.PolicyWaste && strings.TrimSpace(scenario.Input.WastePct) != "" {
			warnings = append(warnings, fmt.Sprintf("Scenario '%s' sets wastePct but the %s policy reads yieldPct", name, policy))
		}
	}

	return warnings
}

func currencyWarning(label, code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if _, err := currency.ParseISO(code); err != nil {
		return fmt.Sprintf("%s '%s' is not an ISO 4217 code - %s formatting will be used", label, code, constants.DefaultCurrency)
	}
	if _, ok := format.LookupProfile(code); !ok {
		return fmt.Sprintf("%s '%s' has no display profile - %s formatting will be used", label, code, constants.DefaultCurrency)
	}
	return ""
}
