package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/penwyp/go-cfs-perfmon/internal/analyzer"
	"github.com/penwyp/go-cfs-perfmon/internal/config"
	"github.com/penwyp/go-cfs-perfmon/internal/data/scanner"
	"github.com/penwyp/go-cfs-perfmon/internal/presentation/formatter"
	"github.com/penwyp/go-cfs-perfmon/internal/util"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var (
	// Logging related
	debug   bool
	logFile string

	// Configuration
	configPath string
	idListPath string

	// Time base
	tickRate      float64
	precision     int
	autoPrecision bool
	relativeTime  bool
	leadingTrim   float64
	trailingTrim  float64

	// Overrun detection
	frameMarker string
	framePeriod float64

	// Output related
	sortOrder    string
	outputFormat string
	showEvents   bool

	appFs afero.Fs = afero.NewOsFs()

	rootCmd = &cobra.Command{
		Use:   "cfs-perfmon [LOG|DIR]...",
		Short: "cFS performance log analyzer",
		Long: `cfs-perfmon decodes cFS performance logs and reports per-ID timing statistics.

Several logs are concatenated in the order given; directories are scanned for
*.dat and *.log files, optionally gzip or zstd compressed.

Examples:
  cfs-perfmon cpu1.dat                                  # Statistics table
  cfs-perfmon --id-list ids.csv --sort value logs/      # Named IDs, busiest first
  cfs-perfmon --frame-marker 0x1 --frame-period 0.01 a.dat  # Report 10 ms frame overruns
  cfs-perfmon --output json a.dat b.dat                 # Full result as JSON
  cfs-perfmon events --errors-only a.dat                # Only flagged events`,
		Version:       Version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runStats,
	}
)

const defaultConfigPath = "~/.cfs-perfmon/config.yaml"

func init() {
	pf := rootCmd.PersistentFlags()

	// Configuration files
	pf.StringVarP(&configPath, "config", "c", defaultConfigPath,
		"YAML configuration file")
	pf.StringVar(&idListPath, "id-list", "",
		"ID list CSV (name,value,color,freq,notes)")

	// Time base
	pf.Float64Var(&tickRate, "tick-rate", 1_000_000,
		"Timer ticks per second")
	pf.IntVarP(&precision, "precision", "p", 6,
		"Decimal places of displayed times (0-12)")
	pf.BoolVar(&autoPrecision, "auto-precision", false,
		"Derive the precision from the tick rate")
	pf.BoolVar(&relativeTime, "relative", false,
		"Measure times from the first record")
	pf.Float64Var(&leadingTrim, "leading-trim", 0,
		"Seconds excluded from the start of the span")
	pf.Float64Var(&trailingTrim, "trailing-trim", 0,
		"Seconds excluded from the end of the span")

	// Overrun detection
	pf.StringVar(&frameMarker, "frame-marker", "",
		"ID whose entries mark frame starts (hex or decimal)")
	pf.Float64Var(&framePeriod, "frame-period", 0,
		"Expected frame period in seconds (0 = no overrun detection)")

	pf.StringVarP(&sortOrder, "sort", "s", "name",
		"Statistics sort order (name, value)")

	// System and debugging
	pf.BoolVar(&debug, "debug", false,
		"Enable debug mode")
	pf.StringVar(&logFile, "log-file", "",
		"Log file (default from the config file)")

	rootCmd.Flags().StringVarP(&outputFormat, "output", "o", formatter.OutputTable,
		"Output format (table, json, csv, summary)")
	rootCmd.Flags().BoolVarP(&showEvents, "events", "e", false,
		"Also print the events table")
}

// environment is what every subcommand needs after flag handling.
type environment struct {
	conf     *config.Config
	analyzer *analyzer.Analyzer
}

// applyFlags overrides config values with the flags set on the command line.
func applyFlags(cmd *cobra.Command, conf *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("id-list") {
		conf.IDList = idListPath
	}
	if flags.Changed("tick-rate") {
		rate := tickRate
		conf.TickRate = &rate
	}
	if flags.Changed("precision") {
		p := precision
		conf.Precision = &p
	}
	if flags.Changed("auto-precision") {
		conf.AutoPrecision = autoPrecision
	}
	if flags.Changed("relative") {
		conf.RelativeTime = relativeTime
	}
	if flags.Changed("leading-trim") {
		conf.LeadingTrim = leadingTrim
	}
	if flags.Changed("trailing-trim") {
		conf.TrailingTrim = trailingTrim
	}
	if flags.Changed("frame-marker") {
		conf.FrameMarkerID = frameMarker
	}
	if flags.Changed("frame-period") {
		conf.FramePeriod = framePeriod
	}
	if flags.Changed("sort") {
		conf.Sort = sortOrder
	}
	if flags.Changed("log-file") {
		conf.Log.File = logFile
	}
}

func setup(cmd *cobra.Command) (*environment, error) {
	conf, err := config.LoadOrDefault(appFs, expandPath(configPath))
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, conf)
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	// Determine log level based on debug flag
	logLevel := conf.Log.Level
	if debug {
		logLevel = "debug"
	}
	if conf.Log.File != "" {
		conf.Log.File = expandPath(conf.Log.File)
		if err := ensureDir(filepath.Dir(conf.Log.File)); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	if err := util.InitLogger(logLevel, conf.Log.File, util.LogFormat(conf.Log.Format), debug); err != nil {
		return nil, err
	}

	reg, err := conf.BuildRegistry(appFs)
	if err != nil {
		return nil, err
	}
	analyzerConfig, err := conf.AnalyzerConfig()
	if err != nil {
		return nil, err
	}
	a, err := analyzer.New(appFs, analyzerConfig, reg)
	if err != nil {
		return nil, err
	}
	return &environment{conf: conf, analyzer: a}, nil
}

// load expands args and runs the pipeline over them.
func (env *environment) load(cmd *cobra.Command, args []string) (*analyzer.Result, error) {
	paths, err := scanner.ExpandPaths(appFs, args)
	if err != nil {
		return nil, err
	}
	return env.analyzer.Load(cmd.Context(), paths)
}

func runStats(cmd *cobra.Command, args []string) error {
	f, err := formatter.New(outputFormat, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	env, err := setup(cmd)
	if err != nil {
		return err
	}
	result, err := env.load(cmd, args)
	if err != nil {
		return err
	}

	if err := f.Format(result); err != nil {
		return err
	}
	if showEvents && outputFormat != formatter.OutputJSON {
		fmt.Fprintln(cmd.OutOrStdout())
		return formatter.NewEventsFormatter(cmd.OutOrStdout(), env.analyzer.Registry(), formatter.EventsOptions{}).Format(result)
	}
	return nil
}

func Execute() error {
	return rootCmd.Execute()
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
