package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

type flagValues struct {
	configFile       string
	src              string
	dest             string
	workers          int
	compression      int
	silent           bool
	srcExt           string
	destExt          string
	copyAll          bool
	excludes         []string
	dryRun           bool
	failurePolicy    string
	corruptionReport string
	logLevel         string
	logFormat        string
	profile          string
	region           string
	planJSONFile     string
	resultJSONFile   string
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var flags flagValues
	defaults := config.Default()

	rootCmd := &cobra.Command{
		Use:   "raw2tiff-sync --src <dir> --dest <dir|s3://bucket/prefix>",
		Short: "Mirror a tree of raw images as compressed TIFF",
		Long: `raw2tiff-sync mirrors a source directory tree into a destination,
converting raw image files to compressed TIFF. Files whose destination is
already newer than the source are skipped, so repeated runs only process
what changed.`,
		Version:       fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, stdout, stderr)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	f := rootCmd.Flags()
	f.StringVar(&flags.configFile, "config", "", "Path to a TOML config file")
	f.StringVar(&flags.src, "src", "", "Root directory of the source tree")
	f.StringVar(&flags.dest, "dest", "", "Root of the destination tree (directory or s3://bucket/prefix)")
	f.IntVar(&flags.workers, "n-cpus", defaults.Workers, "Number of parallel workers")
	f.IntVar(&flags.compression, "compress", defaults.Compression, "TIFF compression level (0-9)")
	f.BoolVar(&flags.silent, "silent", false, "Suppress progress and per-file output")
	f.StringVar(&flags.srcExt, "src-ext", defaults.SourceExt, "Extension of files to convert")
	f.StringVar(&flags.destExt, "dest-ext", defaults.DestExt, "Extension of converted files")
	f.BoolVar(&flags.copyAll, "copy-all", false, "Also copy every other file, recompressing TIFF files")
	f.StringArrayVar(&flags.excludes, "exclude", nil, "Exclude pattern relative to --src (multiple allowed)")
	f.BoolVar(&flags.dryRun, "dryrun", false, "Show operations without writing anything")
	f.StringVar(&flags.failurePolicy, "failure-policy", defaults.FailurePolicy, "What to do after a task fails: fail-fast or drain-all")
	f.StringVar(&flags.corruptionReport, "corruption-report", defaults.CorruptionReport, "Report unreadable TIFF files once or per-cause")
	f.StringVar(&flags.logLevel, "log-level", defaults.Log.Level, "Log level: debug, info, warn or error")
	f.StringVar(&flags.logFormat, "log-format", defaults.Log.Format, "Log format: console or json")
	f.StringVar(&flags.profile, "profile", "", "AWS profile to use for s3:// destinations")
	f.StringVar(&flags.region, "region", "", "AWS region (uses default if not specified)")
	f.StringVar(&flags.planJSONFile, "plan-json-file", "", "Path to output plan as JSON file")
	f.StringVar(&flags.resultJSONFile, "result-json-file", "", "Path to output result as JSON file")

	return rootCmd
}

// loadConfig layers the config file and then every flag the user set
// explicitly over the defaults.
func loadConfig(cmd *cobra.Command, flags flagValues) (*config.Config, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	setString := func(name string, dst *string, v string) {
		if changed(name) {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool, v bool) {
		if changed(name) {
			*dst = v
		}
	}

	setString("src", &cfg.Src, flags.src)
	setString("dest", &cfg.Dest, flags.dest)
	if changed("n-cpus") {
		cfg.Workers = flags.workers
	}
	if changed("compress") {
		cfg.Compression = flags.compression
	}
	setBool("silent", &cfg.Silent, flags.silent)
	setString("src-ext", &cfg.SourceExt, flags.srcExt)
	setString("dest-ext", &cfg.DestExt, flags.destExt)
	setBool("copy-all", &cfg.CopyAll, flags.copyAll)
	if changed("exclude") {
		cfg.Excludes = flags.excludes
	}
	setBool("dryrun", &cfg.DryRun, flags.dryRun)
	setString("failure-policy", &cfg.FailurePolicy, flags.failurePolicy)
	setString("corruption-report", &cfg.CorruptionReport, flags.corruptionReport)
	setString("log-level", &cfg.Log.Level, flags.logLevel)
	setString("log-format", &cfg.Log.Format, flags.logFormat)
	setString("profile", &cfg.S3.Profile, flags.profile)
	setString("region", &cfg.S3.Region, flags.region)
	setString("plan-json-file", &cfg.PlanJSONFile, flags.planJSONFile)
	setString("result-json-file", &cfg.ResultJSONFile, flags.resultJSONFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
