package main

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

//go:embed default-config.yaml
var defaultConfigYAML string

// InvestmentConfig holds the growth and contribution settings
type InvestmentConfig struct {
	// Growth Rate Source: "custom" for manual entry, or stock index ID (e.g., "msci_world", "sp500")
	GrowthRateSource      string `yaml:"growth_rate_source,omitempty" json:"growth_rate_source,omitempty" toml:"growth_rate_source,omitempty"`
	GrowthRatePeriodYears int    `yaml:"growth_rate_period_years,omitempty" json:"growth_rate_period_years,omitempty" toml:"growth_rate_period_years,omitempty"` // Selected time period (3, 5, 10, 25, etc.)

	AnnualRate          float64 `yaml:"annual_rate" json:"annual_rate" toml:"annual_rate"`                            // e.g., 0.07 = 7%
	MonthlyContribution float64 `yaml:"monthly_contribution" json:"monthly_contribution" toml:"monthly_contribution"` // Invested every month
	StartingWealth      float64 `yaml:"starting_wealth" json:"starting_wealth" toml:"starting_wealth"`
}

// HorizonConfig holds the simulated calendar range
type HorizonConfig struct {
	StartYear int `yaml:"start_year" json:"start_year" toml:"start_year"`
	EndYear   int `yaml:"end_year" json:"end_year" toml:"end_year"`
}

// TaxConfig holds the wealth tax on monthly accrual
// Thresholds and rate default to 150/300 and 36% when left at zero
type TaxConfig struct {
	Enabled              bool    `yaml:"enabled" json:"enabled" toml:"enabled"`
	HasPartner           bool    `yaml:"has_partner" json:"has_partner" toml:"has_partner"` // Fiscal partner doubles the tax-free accrual
	Rate                 float64 `yaml:"rate,omitempty" json:"rate,omitempty" toml:"rate,omitempty"`
	FreeThreshold        float64 `yaml:"free_threshold,omitempty" json:"free_threshold,omitempty" toml:"free_threshold,omitempty"`
	PartnerFreeThreshold float64 `yaml:"partner_free_threshold,omitempty" json:"partner_free_threshold,omitempty" toml:"partner_free_threshold,omitempty"`
}

// MortgageConfig holds mortgage details
type MortgageConfig struct {
	Principal      float64 `yaml:"principal" json:"principal" toml:"principal"`
	AnnualRate     float64 `yaml:"annual_rate" json:"annual_rate" toml:"annual_rate"`
	MonthlyPayment float64 `yaml:"monthly_payment,omitempty" json:"monthly_payment,omitempty" toml:"monthly_payment,omitempty"` // 0 = standard 30-year annuity payment

	// Interest deduction: reported = floor + (due - floor) * excess_share
	NonDeductibleFloor float64 `yaml:"non_deductible_floor,omitempty" json:"non_deductible_floor,omitempty" toml:"non_deductible_floor,omitempty"`
	ExcessShare        float64 `yaml:"excess_share,omitempty" json:"excess_share,omitempty" toml:"excess_share,omitempty"`
}

// SensitivityConfig holds sensitivity analysis parameters
type SensitivityConfig struct {
	RateMin  float64 `yaml:"rate_min" json:"rate_min" toml:"rate_min"`    // Min annual growth rate (e.g., 0.02 = 2%)
	RateMax  float64 `yaml:"rate_max" json:"rate_max" toml:"rate_max"`    // Max annual growth rate (e.g., 0.10 = 10%)
	StepSize float64 `yaml:"step_size" json:"step_size" toml:"step_size"` // Step size (e.g., 0.01 = 1%)
}

// ServerConfig holds settings for the web server and persistence.
// Every field can be overridden through WEALTH_* environment variables.
type ServerConfig struct {
	Addr      string `yaml:"addr,omitempty" json:"addr,omitempty" toml:"addr,omitempty" env:"WEALTH_ADDR"`
	RedisAddr string `yaml:"redis_addr,omitempty" json:"redis_addr,omitempty" toml:"redis_addr,omitempty" env:"WEALTH_REDIS_ADDR"` // Empty = in-process cache
	StorePath string `yaml:"store_path,omitempty" json:"store_path,omitempty" toml:"store_path,omitempty" env:"WEALTH_STORE"`
}

// Config holds the complete configuration
type Config struct {
	Investment  InvestmentConfig  `yaml:"investment" json:"investment" toml:"investment"`
	Horizon     HorizonConfig     `yaml:"horizon" json:"horizon" toml:"horizon"`
	Tax         TaxConfig         `yaml:"tax" json:"tax" toml:"tax"`
	Mortgage    MortgageConfig    `yaml:"mortgage" json:"mortgage" toml:"mortgage"`
	Targets     []float64         `yaml:"targets" json:"targets" toml:"targets"`
	Sensitivity SensitivityConfig `yaml:"sensitivity" json:"sensitivity" toml:"sensitivity"`
	Server      ServerConfig      `yaml:"server,omitempty" json:"-" toml:"server,omitempty"`
}

// LoadConfig loads configuration from a YAML or TOML file (chosen by extension)
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	content := preprocessPercentages(string(data))

	var config Config
	if isTOML(filename) {
		if _, err := toml.Decode(content, &config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
		return &config, nil
	}

	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return &config, nil
}

// SaveConfig saves configuration to a YAML or TOML file (chosen by extension)
func SaveConfig(config *Config, filename string) error {
	if isTOML(filename) {
		f, err := os.Create(filename)
		if err != nil {
			return err
		}
		defer f.Close()
		return toml.NewEncoder(f).Encode(config)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	// Add a header comment with instructions
	header := []byte(`# Wealth Forecast Configuration
# Generated by goWealthForecast - feel free to edit manually
#
#   Percentages: 0.07 = 7% (or write 7%)
#   Money: plain numbers (e.g., 250000)
#   mortgage.monthly_payment: 0 uses the standard 30-year annuity payment
#   targets: list of wealth targets to report on
#
#   ./goWealthForecast                      Console forecast
#   ./goWealthForecast forecast --html      Forecast with HTML report
#   ./goWealthForecast sensitivity          Growth-rate sensitivity grid
#   ./goWealthForecast web                  Web interface
#
`)
	content := append(header, data...)
	return os.WriteFile(filename, content, 0644)
}

// LoadDefaultConfig loads the default configuration from embedded default-config.yaml
func LoadDefaultConfig() (*Config, error) {
	content := preprocessPercentages(defaultConfigYAML)

	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// ApplyEnv overrides server settings from WEALTH_* environment variables
func ApplyEnv(config *Config) error {
	if err := env.Parse(&config.Server); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func isTOML(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".toml")
}

// preprocessPercentages converts percentage values like "7%" to decimal "0.07"
func preprocessPercentages(content string) string {
	// Match patterns like: key: 7% (YAML) or key = 3.89% (TOML)
	re := regexp.MustCompile(`([:=]\s*)(-?\d+\.?\d*)%`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) >= 3 {
			num, err := strconv.ParseFloat(parts[2], 64)
			if err == nil {
				return parts[1] + strconv.FormatFloat(num/100.0, 'f', -1, 64)
			}
		}
		return match
	})
}

// GetAnnualRate returns the growth rate, resolving a stock index source if configured
func (ic *InvestmentConfig) GetAnnualRate() float64 {
	if ic.GrowthRateSource == "" || ic.GrowthRateSource == "custom" {
		return ic.AnnualRate
	}
	index := GetStockIndexByID(ic.GrowthRateSource)
	if index == nil {
		return ic.AnnualRate
	}
	return GetReturnForPeriod(index, ic.GrowthRatePeriodYears)
}

// SimulationParameters builds the immutable simulation input from the config
func (c *Config) SimulationParameters() SimulationParameters {
	return SimulationParameters{
		AnnualRate:          c.Investment.GetAnnualRate(),
		MonthlyContribution: c.Investment.MonthlyContribution,
		StartingWealth:      c.Investment.StartingWealth,
		StartYear:           c.Horizon.StartYear,
		EndYear:             c.Horizon.EndYear,
		TaxEnabled:          c.Tax.Enabled,
		HasPartner:          c.Tax.HasPartner,
		Tax: WealthTaxPolicy{
			Rate:                 c.Tax.Rate,
			FreeThreshold:        c.Tax.FreeThreshold,
			PartnerFreeThreshold: c.Tax.PartnerFreeThreshold,
		},
	}
}

// HasMortgage returns true if there is a mortgage with principal > 0
func (c *Config) HasMortgage() bool {
	return c.Mortgage.Principal > 0
}

// MortgageParameters builds the mortgage input, defaulting the payment to the
// standard 30-year annuity payment when none is configured
func (c *Config) MortgageParameters() MortgageParameters {
	params := MortgageParameters{
		Principal:      c.Mortgage.Principal,
		AnnualRate:     c.Mortgage.AnnualRate,
		MonthlyPayment: c.Mortgage.MonthlyPayment,
		Deduction: InterestDeductionPolicy{
			NonDeductibleFloor: c.Mortgage.NonDeductibleFloor,
			ExcessShare:        c.Mortgage.ExcessShare,
		},
	}
	if params.MonthlyPayment <= 0 {
		params.MonthlyPayment = params.AnnuityPayment()
	}
	return params
}

// appendValidation adds the field errors inside err to errs. Errors that are not
// ValidationErrors are kept as a single entry.
func appendValidation(errs ValidationErrors, err error) ValidationErrors {
	if err == nil {
		return errs
	}
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return append(errs, ve...)
	}
	return append(errs, ValidationError{Field: "config", Message: err.Error(), Err: err})
}

// Validate checks the whole configuration and reports every invalid field
func (c *Config) Validate() error {
	var errs ValidationErrors

	collect := func(err error) {
		errs = appendValidation(errs, err)
	}

	collect(c.SimulationParameters().Validate())
	if c.Investment.GrowthRateSource != "" && c.Investment.GrowthRateSource != "custom" &&
		GetStockIndexByID(c.Investment.GrowthRateSource) == nil {
		errs = append(errs, ValidationError{
			Field:   "investment.growth_rate_source",
			Message: fmt.Sprintf("unknown growth rate source %q", c.Investment.GrowthRateSource),
		})
	}
	if err := validatePercent(c.Tax.Rate, "tax.rate"); err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if c.HasMortgage() {
		collect(c.MortgageParameters().Validate())
	}
	if c.Sensitivity.RateMin <= -1 {
		errs = append(errs, ValidationError{Field: "sensitivity.rate_min", Message: "Minimum rate must be above -100%"})
	}
	if c.Sensitivity.StepSize < 0 {
		errs = append(errs, ValidationError{Field: "sensitivity.step_size", Message: "Step size cannot be negative"})
	}

	return errs.OrNil()
}

func formatDefaultMoney(amount float64) string {
	if amount >= 1000000 {
		return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(amount/1000000, 'f', 1, 64), "0"), ".") + "m"
	} else if amount >= 1000 {
		return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(amount/1000, 'f', 1, 64), "0"), ".") + "k"
	}
	return strconv.FormatFloat(amount, 'f', 0, 64)
}

func formatDefaultPercent(rate float64) string {
	return strconv.FormatFloat(rate*100, 'f', 2, 64) + "%"
}
