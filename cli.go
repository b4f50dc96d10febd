package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagDetails   bool
	flagHTML      bool
	flagOutDir    string
	flagTargets   string
	flagRate      float64
	flagMonthly   float64
	flagStart     float64
	flagStartYear int
	flagEndYear   int
	flagTax       bool
	flagPartner   bool
	flagAddr      string
	flagSaveAs    string
)

var rootCmd = &cobra.Command{
	Use:   "goWealthForecast",
	Short: "Wealth forecast calculator",
	Long: `Projects monthly wealth growth with regular investments, an optional wealth
tax on growth and an optional mortgage, and reports when wealth targets
(and the first million) are reached.`,
	SilenceUsage: true,
	RunE:         runForecast,
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Print the forecast to the console (default)",
	RunE:  runForecast,
}

var sensitivityCmd = &cobra.Command{
	Use:   "sensitivity",
	Short: "Compare outcomes across a range of growth rates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		analysis, err := RunSensitivityAnalysis(ctx, config)
		if err != nil {
			return err
		}
		PrintSensitivity(cmd.OutOrStdout(), analysis)
		return nil
	},
}

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Start the web interface (opens external browser)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		addr := config.Server.Addr
		if cmd.Flags().Changed("addr") || addr == "" {
			addr = flagAddr
		}

		server := NewWebServer(config, addr)
		if config.Server.RedisAddr != "" {
			cache := NewRedisCache(config.Server.RedisAddr, 24*time.Hour)
			defer cache.Close()
			if err := cache.Ping(cmd.Context()); err != nil {
				log.Printf("Redis unavailable (%v), using in-process cache", err)
			} else {
				server.SetCache(cache)
			}
		}
		if config.Server.StorePath != "" {
			store, err := OpenScenarioStore(config.Server.StorePath)
			if err != nil {
				return err
			}
			defer store.Close()
			server.SetStore(store)
		}
		return server.Start()
	},
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the forecast in an embedded browser window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runEmbeddedUI(config)
	},
}

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Build a configuration with an interactive form and run it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		base, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		config, err := NewInteractiveConfigBuilder(base).Build()
		if err != nil {
			return err
		}
		if flagSaveAs != "" {
			if err := SaveConfig(config, flagSaveAs); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n\n", flagSaveAs)
		}
		return printForecast(cmd, config)
	},
}

var indicesCmd = &cobra.Command{
	Use:   "indices",
	Short: "List stock index growth presets",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		PrintIndices(cmd.OutOrStdout())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write the default configuration (YAML or TOML by extension)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := "config.yaml"
		if len(args) == 1 {
			filename = args[0]
		}
		if _, err := os.Stat(filename); err == nil {
			return fmt.Errorf("%s already exists", filename)
		}
		config, err := LoadDefaultConfig()
		if err != nil {
			return err
		}
		if err := SaveConfig(config, filename); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", filename)
		return nil
	},
}

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Save, list, run and delete named scenarios",
}

var scenarioSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Run the current configuration and save it under a name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		result, err := RunForecastFromConfig(config)
		if err != nil {
			return err
		}
		return withStore(config, func(store *ScenarioStore) error {
			if err := store.Save(args[0], config, result); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved scenario %q (final wealth %s)\n", args[0], FormatMoneyFull(result.Series.Final()))
			return nil
		})
	},
}

var scenarioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return withStore(config, func(store *ScenarioStore) error {
			scenarios, err := store.List()
			if err != nil {
				return err
			}
			PrintScenarios(cmd.OutOrStdout(), scenarios)
			return nil
		})
	},
}

var scenarioRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Run a saved scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return withStore(config, func(store *ScenarioStore) error {
			sc, err := store.Get(args[0])
			if err != nil {
				return err
			}
			return printForecast(cmd, sc.Config)
		})
	},
}

var scenarioDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return withStore(config, func(store *ScenarioStore) error {
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted scenario %q\n", args[0])
			return nil
		})
	},
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "Path to YAML or TOML configuration file (default $WEALTH_CONFIG or config.yaml)")
	pf.StringVar(&flagTargets, "targets", "", "Comma separated wealth targets, e.g. \"100000, 250000\"")
	pf.Float64Var(&flagRate, "rate", 0, "Annual growth rate override (0.07 = 7%)")
	pf.Float64Var(&flagMonthly, "monthly", 0, "Monthly investment override")
	pf.Float64Var(&flagStart, "start", 0, "Starting wealth override")
	pf.IntVar(&flagStartYear, "start-year", 0, "Start year override")
	pf.IntVar(&flagEndYear, "end-year", 0, "End year override")
	pf.BoolVar(&flagTax, "tax", false, "Apply wealth tax on monthly growth")
	pf.BoolVar(&flagPartner, "partner", false, "Use the fiscal partner tax-free threshold")

	for _, cmd := range []*cobra.Command{rootCmd, forecastCmd} {
		cmd.Flags().BoolVar(&flagDetails, "details", false, "Show every year instead of every fifth")
		cmd.Flags().BoolVar(&flagHTML, "html", false, "Write HTML, PDF and CSV reports into a dated folder")
		cmd.Flags().StringVar(&flagOutDir, "out", ".", "Output directory for --html reports")
	}
	webCmd.Flags().StringVar(&flagAddr, "addr", "localhost:0", "Web server address (use :0 for auto port)")
	interactiveCmd.Flags().StringVar(&flagSaveAs, "save", "", "Save the resulting configuration to this file")

	configCmd.AddCommand(configInitCmd)
	scenarioCmd.AddCommand(scenarioSaveCmd, scenarioListCmd, scenarioRunCmd, scenarioDeleteCmd)
	rootCmd.AddCommand(forecastCmd, sensitivityCmd, webCmd, uiCmd, interactiveCmd, indicesCmd, configCmd, scenarioCmd)
}

// configPath resolves --config, then $WEALTH_CONFIG, then config.yaml
func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	if p := os.Getenv("WEALTH_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

// loadConfig loads the config file (falling back to the embedded defaults when it
// does not exist), applies environment and flag overrides, and validates it
func loadConfig(cmd *cobra.Command) (*Config, error) {
	path := configPath()
	config, err := LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		if flagConfig != "" {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		config, err = LoadDefaultConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	applyFlagOverrides(cmd, config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func applyFlagOverrides(cmd *cobra.Command, config *Config) {
	flags := cmd.Flags()
	if flags.Changed("rate") {
		config.Investment.GrowthRateSource = "custom"
		config.Investment.AnnualRate = flagRate
	}
	if flags.Changed("monthly") {
		config.Investment.MonthlyContribution = flagMonthly
	}
	if flags.Changed("start") {
		config.Investment.StartingWealth = flagStart
	}
	if flags.Changed("start-year") {
		config.Horizon.StartYear = flagStartYear
	}
	if flags.Changed("end-year") {
		config.Horizon.EndYear = flagEndYear
	}
	if flags.Changed("tax") {
		config.Tax.Enabled = flagTax
	}
	if flags.Changed("partner") {
		config.Tax.HasPartner = flagPartner
	}
	if flags.Changed("targets") {
		config.Targets = ParseTargets(flagTargets)
	}
}

func runForecast(cmd *cobra.Command, _ []string) error {
	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return printForecast(cmd, config)
}

func printForecast(cmd *cobra.Command, config *Config) error {
	result, err := RunForecastFromConfig(config)
	if err != nil {
		return err
	}
	PrintForecast(cmd.OutOrStdout(), result, flagDetails)

	if flagHTML {
		dir, err := GenerateReports(result, flagOutDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reports written to %s\n", dir)
		openBrowser(dir + "/forecast.html")
	}
	return nil
}

func withStore(config *Config, fn func(*ScenarioStore) error) error {
	path := config.Server.StorePath
	if path == "" {
		path = "scenarios.db"
	}
	store, err := OpenScenarioStore(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
