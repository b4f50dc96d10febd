package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultConfig(t *testing.T) {
	config, err := LoadDefaultConfig()
	if err != nil {
		t.Fatal(err)
	}

	if config.Investment.AnnualRate != 0.07 {
		t.Errorf("annual_rate = %v, want 0.07", config.Investment.AnnualRate)
	}
	if config.Horizon.StartYear != 2026 || config.Horizon.EndYear != 2069 {
		t.Errorf("horizon = %+v", config.Horizon)
	}
	if config.Tax.Rate != 0.36 {
		t.Errorf("tax.rate = %v, want 0.36", config.Tax.Rate)
	}
	if config.Sensitivity.StepSize != 0.01 {
		t.Errorf("sensitivity.step_size = %v, want 0.01", config.Sensitivity.StepSize)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Default config invalid: %v", err)
	}
}

func TestPreprocessPercentages(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"annual_rate: 7%", "annual_rate: 0.07"},
		{"rate = 3.5%", "rate = 0.035"},
		{"annual_rate: -2%", "annual_rate: -0.02"},
		{"annual_rate: 0.07", "annual_rate: 0.07"},
		{"# 100% comment", "# 100% comment"},
	}
	for _, tc := range tests {
		if got := preprocessPercentages(tc.input); got != tc.want {
			t.Errorf("preprocessPercentages(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
investment:
  annual_rate: 5%
  monthly_contribution: 500
  starting_wealth: 10000
horizon:
  start_year: 2030
  end_year: 2050
tax:
  enabled: true
  has_partner: true
mortgage:
  principal: 250000
  annual_rate: 3.5%
targets: [50000, 200000]
`)
	config, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if config.Investment.AnnualRate != 0.05 || config.Mortgage.AnnualRate != 0.035 {
		t.Errorf("rates = %v/%v", config.Investment.AnnualRate, config.Mortgage.AnnualRate)
	}
	if !config.Tax.Enabled || !config.Tax.HasPartner {
		t.Errorf("tax = %+v", config.Tax)
	}
	if len(config.Targets) != 2 || config.Targets[1] != 200000 {
		t.Errorf("targets = %v", config.Targets)
	}

	// Unset tax rate falls back to the default policy
	params := config.SimulationParameters()
	if params.Tax.GetRate() != 0.36 || params.Tax.GetFreeThreshold(true) != 300 {
		t.Errorf("tax policy = %+v", params.Tax)
	}

	// Unset payment defaults to the 30-year annuity
	m := config.MortgageParameters()
	if m.MonthlyPayment != m.AnnuityPayment() {
		t.Errorf("payment = %.2f, want annuity %.2f", m.MonthlyPayment, m.AnnuityPayment())
	}
}

func TestLoadConfig_TOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
targets = [100000.0, 500000.0]

[investment]
annual_rate = 6%
monthly_contribution = 750.0
starting_wealth = 0.0

[horizon]
start_year = 2026
end_year = 2046
`)
	config, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if config.Investment.AnnualRate != 0.06 || config.Investment.MonthlyContribution != 750 {
		t.Errorf("investment = %+v", config.Investment)
	}
	if config.Horizon.EndYear != 2046 || len(config.Targets) != 2 {
		t.Errorf("config = %+v", config)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	config, err := LoadDefaultConfig()
	if err != nil {
		t.Fatal(err)
	}
	config.Targets = []float64{123456}
	config.Mortgage.Principal = 300000

	for _, name := range []string{"saved.yaml", "saved.toml"} {
		path := filepath.Join(t.TempDir(), name)
		if err := SaveConfig(config, path); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		loaded, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if loaded.Mortgage.Principal != 300000 || len(loaded.Targets) != 1 || loaded.Targets[0] != 123456 {
			t.Errorf("%s: reloaded config differs: %+v", name, loaded)
		}
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("WEALTH_ADDR", ":9090")
	t.Setenv("WEALTH_REDIS_ADDR", "localhost:6379")
	t.Setenv("WEALTH_STORE", "/tmp/wealth.db")

	config, err := LoadDefaultConfig()
	if err != nil {
		t.Fatal(err)
	}
	if err := ApplyEnv(config); err != nil {
		t.Fatal(err)
	}
	if config.Server.Addr != ":9090" || config.Server.RedisAddr != "localhost:6379" || config.Server.StorePath != "/tmp/wealth.db" {
		t.Errorf("server = %+v", config.Server)
	}
}

func TestInvestmentConfig_GetAnnualRate(t *testing.T) {
	ic := InvestmentConfig{AnnualRate: 0.05}
	if ic.GetAnnualRate() != 0.05 {
		t.Error("custom source should use annual_rate")
	}

	ic.GrowthRateSource = "sp500"
	ic.GrowthRatePeriodYears = 10
	want := GetReturnForPeriod(GetStockIndexByID("sp500"), 10)
	if got := ic.GetAnnualRate(); got != want {
		t.Errorf("GetAnnualRate() = %v, want %v", got, want)
	}

	ic.GrowthRatePeriodYears = 999
	if got := ic.GetAnnualRate(); got != GetStockIndexByID("sp500").DefaultReturn {
		t.Errorf("Unknown period should fall back to default return, got %v", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		field   string
		wantErr error
	}{
		{"end before start", func(c *Config) { c.Horizon.EndYear = c.Horizon.StartYear }, "horizon.end_year", ErrInvalidHorizon},
		{"unknown index", func(c *Config) { c.Investment.GrowthRateSource = "nikkei" }, "investment.growth_rate_source", nil},
		{"tax rate over 100%", func(c *Config) { c.Tax.Rate = 1.5 }, "tax.rate", nil},
		{"negative contribution", func(c *Config) { c.Investment.MonthlyContribution = -1 }, "investment.monthly_contribution", nil},
		{"total loss growth rate", func(c *Config) { c.Investment.AnnualRate = -2 }, "investment.annual_rate", nil},
		{"growth rate of exactly -100%", func(c *Config) { c.Investment.AnnualRate = -1 }, "investment.annual_rate", nil},
		{"end year far in the future", func(c *Config) { c.Horizon.EndYear = 2000000000 }, "horizon.end_year", ErrInvalidHorizon},
		{"start year too early", func(c *Config) { c.Horizon.StartYear = 1800 }, "horizon.start_year", ErrInvalidHorizon},
		{"sensitivity minimum at total loss", func(c *Config) { c.Sensitivity.RateMin = -1 }, "sensitivity.rate_min", nil},
		{"payment below interest", func(c *Config) {
			c.Mortgage.Principal = 400000
			c.Mortgage.MonthlyPayment = 100
		}, "mortgage.monthly_payment", ErrInvalidMortgagePayment},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			config, err := LoadDefaultConfig()
			if err != nil {
				t.Fatal(err)
			}
			tc.mutate(config)

			err = config.Validate()
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() = %v, want ValidationErrors", err)
			}
			found := false
			for _, ve := range verrs {
				if ve.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Errorf("No error for field %s in %v", tc.field, err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("errors.Is(%v, %v) = false", err, tc.wantErr)
			}
		})
	}
}

func TestAppendValidation(t *testing.T) {
	errs := appendValidation(nil, nil)
	if len(errs) != 0 {
		t.Fatalf("nil error appended: %v", errs)
	}

	errs = appendValidation(errs, ValidationErrors{{Field: "a"}, {Field: "b"}})
	if len(errs) != 2 {
		t.Fatalf("len = %d, want 2", len(errs))
	}

	plain := errors.New("disk on fire")
	errs = appendValidation(errs, plain)
	if len(errs) != 3 || errs[2].Message != "disk on fire" {
		t.Fatalf("plain error not kept: %v", errs)
	}
	if !errors.Is(errs, plain) {
		t.Error("errors.Is must reach the plain error")
	}
}
