package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/drawdown-sim/drawdown-sim/sim"
)

var (
	// CLI flags shared by run and serve
	configPath  string    // YAML settings file
	logLevel    string    // Log verbosity level for run
	seed        int64     // Master seed for bootstrap sampling
	workers     int       // Concurrent simulation blocks
	policy      string    // Withdrawal policy name
	historyFile string    // CSV of closing prices
	returns     []float64 // Inline annual returns
	symbol      string    // Symbol selected from the history file
	startDate   string    // Inclusive start of the history window
	endDate     string    // Exclusive end of the history window
	outputFile  string    // Decile CSV path
	pdfFile     string    // Decile PDF path
	currency    string    // ISO currency code for display
	maxSims     int       // Ceiling on num_sims per request
	maxYears    int       // Ceiling on num_years per request

	// CLI flags for run
	numYears          int     // Years per simulated path
	numSims           int     // Number of simulated paths
	initialInvestment float64 // Starting portfolio value
	withdrawalRate    float64 // Annual withdrawal rate in percent
	outputFormat      string  // text or json
	yearly            bool    // Report the mean factor of each year

	// CLI flags for serve
	addr          string // Listen address
	serveLogLevel string // Log verbosity level for serve
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "drawdown-sim",
	Short: "Bootstrap Monte Carlo simulator for retirement withdrawals",
}

// runCmd executes one simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a bootstrap simulation and save the decile table",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging(logLevel)
		cfg := loadSettings(cmd.Flags())

		simulator, err := NewSimulator(cfg)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		req := SimulationRequest{
			NumYears:          numYears,
			NumSims:           numSims,
			InitialInvestment: initialInvestment,
			Yearly:            yearly,
		}
		if cmd.Flags().Changed("withdrawal-rate") {
			req.WithdrawalRate = &withdrawalRate
		}

		startTime := time.Now()
		resp, result, err := simulator.Simulate(cmd.Context(), req)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Infof("Simulation complete in %v.", time.Since(startTime))

		switch outputFormat {
		case "json":
			err = PrintJSON(os.Stdout, resp)
		default:
			err = PrintText(os.Stdout, result.Config, resp, cfg.Currency)
		}
		if err != nil {
			logrus.Fatalf("Writing results: %v", err)
		}
	},
}

// serveCmd exposes the simulator over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /simulate over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging(serveLogLevel)
		cfg := loadSettings(cmd.Flags())

		simulator, err := NewSimulator(cfg)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		if !cmd.Flags().Changed("seed") {
			// Unseeded requests get a fresh seed each time; the response echoes it.
			simulator.NextSeed = func() int64 { return time.Now().UnixNano() }
		}

		gin.SetMode(gin.ReleaseMode)
		router := NewRouter(simulator)
		logrus.Infof("Listening on %s", addr)
		if err := router.Run(addr); err != nil {
			logrus.Fatalf("Server stopped: %v", err)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(name string) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", name)
	}
	logrus.SetLevel(level)
}

// loadSettings reads --config and applies every explicitly set flag over it.
func loadSettings(flags *pflag.FlagSet) Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		logrus.Fatalf("Loading configuration: %v", err)
	}
	applyFlagOverrides(flags, &cfg)
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func applyFlagOverrides(flags *pflag.FlagSet, cfg *Config) {
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("policy") {
		cfg.Policy = policy
	}
	if flags.Changed("history-file") {
		cfg.HistoryFile = historyFile
	}
	if flags.Changed("returns") {
		cfg.Returns = returns
	}
	if flags.Changed("symbol") {
		cfg.Symbol = symbol
	}
	if flags.Changed("start") {
		cfg.StartDate = startDate
	}
	if flags.Changed("end") {
		cfg.EndDate = endDate
	}
	if flags.Changed("output") {
		cfg.OutputFile = outputFile
	}
	if flags.Changed("pdf") {
		cfg.PDFFile = pdfFile
	}
	if flags.Changed("currency") {
		cfg.Currency = currency
	}
	if flags.Changed("max-sims") {
		cfg.MaxSims = maxSims
	}
	if flags.Changed("max-years") {
		cfg.MaxYears = maxYears
	}
}

func addSharedFlags(cmd *cobra.Command, level *string, defaultLogLevel string) {
	defaults := DefaultConfig()
	cmd.Flags().StringVar(&configPath, "config", "", "YAML settings file (flags override it)")
	cmd.Flags().StringVar(level, "log", defaultLogLevel, "Log level (trace, debug, info, warn, error, fatal, panic)")
	cmd.Flags().Int64Var(&seed, "seed", defaults.Seed, "Seed for bootstrap sampling")
	cmd.Flags().IntVar(&workers, "workers", defaults.Workers, "Simulation blocks run concurrently (output does not depend on it)")
	cmd.Flags().StringVar(&policy, "policy", defaults.Policy, "Withdrawal policy: "+strings.Join(sim.PolicyNames(), ", "))
	cmd.Flags().StringVar(&historyFile, "history-file", "", "CSV of closing prices (Date,Close[,Symbol])")
	cmd.Flags().Float64SliceVar(&returns, "returns", nil, "Comma-separated annual returns as fractions, used without --history-file")
	cmd.Flags().StringVar(&symbol, "symbol", defaults.Symbol, "Symbol selected from the history file")
	cmd.Flags().StringVar(&startDate, "start", defaults.StartDate, "History window start (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&endDate, "end", defaults.EndDate, "History window end (YYYY-MM-DD, exclusive)")
	cmd.Flags().StringVar(&outputFile, "output", defaults.OutputFile, "Decile CSV path (empty disables saving)")
	cmd.Flags().StringVar(&pdfFile, "pdf", "", "Also save the decile table as PDF")
	cmd.Flags().StringVar(&currency, "currency", defaults.Currency, "ISO currency code for display")
	cmd.Flags().IntVar(&maxSims, "max-sims", defaults.MaxSims, "Reject requests with more simulations (0 disables the limit)")
	cmd.Flags().IntVar(&maxYears, "max-years", defaults.MaxYears, "Reject requests with more years (0 disables the limit)")
}

// init sets up CLI flags and subcommands
func init() {
	addSharedFlags(runCmd, &logLevel, "error")
	runCmd.Flags().IntVar(&numYears, "num-years", 30, "Years per simulated path")
	runCmd.Flags().IntVar(&numSims, "num-sims", 10000, "Number of simulated paths")
	runCmd.Flags().Float64Var(&initialInvestment, "initial-investment", 1000000, "Starting portfolio value")
	runCmd.Flags().Float64Var(&withdrawalRate, "withdrawal-rate", DefaultConfig().DefaultWithdrawalRate, "Annual withdrawal rate in percent (4 means 4%)")
	runCmd.Flags().StringVar(&outputFormat, "format", "text", "Output format: text or json")
	runCmd.Flags().BoolVar(&yearly, "yearly", false, "Report the mean cumulative factor of each year")

	addSharedFlags(serveCmd, &serveLogLevel, "info")
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}
