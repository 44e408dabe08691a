package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/google/uuid"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/config"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/destination"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/executor"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/logger"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/planner"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/policy"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/progress"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/s3client"
)

func run(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	started := time.Now()

	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Writer: stderr})
	if err != nil {
		return err
	}
	log = log.With("run_id", uuid.NewString())

	syncLogger := &logger.SyncLogger{
		Log:      log,
		IsDryRun: cfg.DryRun,
		IsQuiet:  cfg.Silent,
	}

	src, err := filepath.Abs(cfg.Src)
	if err != nil {
		return fmt.Errorf("resolve source path: %w", err)
	}

	dest, err := openDestination(ctx, cfg, src)
	if err != nil {
		return err
	}
	log.Debug("starting run", "src", src, "dest", dest.String(), "workers", cfg.Workers, "compress", cfg.Compression)

	interactive := !cfg.Silent && isTerminal(stderr)

	scanBar := progress.New(progress.Options{
		Description: "Scanning directory",
		Total:       -1,
		Writer:      stderr,
		Enabled:     interactive,
	})
	scanner := planner.NewScanner(dest, planner.Options{
		SourceExt: cfg.SourceExt,
		DestExt:   cfg.DestExt,
		CopyAll:   cfg.CopyAll,
		Excludes:  cfg.Excludes,
		DryRun:    cfg.DryRun,
		Logger:    syncLogger,
		OnFile:    func() { scanBar.Add(1) },
	})
	tasks, err := scanner.Scan(ctx, src)
	scanBar.Finish()
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", src, err)
	}

	if cfg.PlanJSONFile != "" {
		if err := writePlanResult(cfg.PlanJSONFile, tasks); err != nil {
			return fmt.Errorf("failed to write plan JSON: %w", err)
		}
	}

	// Both values were checked by Validate.
	failurePolicy, _ := executor.ParseFailurePolicy(cfg.FailurePolicy)
	reportMode, _ := policy.ParseReportMode(cfg.CorruptionReport)

	reporter := policy.NewReporter(reportMode, syncLogger)
	engine := policy.NewEngine(dest, policy.Options{
		Compression: cfg.Compression,
		DryRun:      cfg.DryRun,
		Reporter:    reporter,
	}, syncLogger)

	workBar := progress.New(progress.Options{
		Description: "Working",
		Total:       len(tasks),
		Writer:      stderr,
		Enabled:     interactive,
	})
	exec := executor.NewExecutor(engine, syncLogger, executor.Options{
		Workers:       cfg.Workers,
		FailurePolicy: failurePolicy,
		OnResult:      func(executor.Result) { workBar.Add(1) },
	})
	outcome, runErr := exec.Execute(ctx, tasks)
	workBar.Finish()

	if cfg.ResultJSONFile != "" {
		if err := writeSyncResult(cfg.ResultJSONFile, buildSyncResult(outcome)); err != nil {
			return fmt.Errorf("failed to write result JSON: %w", err)
		}
	}

	if !cfg.Silent {
		printSummary(stdout, summary{
			Outcome: outcome,
			Planned: len(tasks),
			DryRun:  cfg.DryRun,
			Elapsed: time.Since(started),
		})
	}

	return runErr
}

// openDestination builds the destination named by cfg.Dest. A local
// destination must not live inside src.
func openDestination(ctx context.Context, cfg *config.Config, src string) (destination.Destination, error) {
	if cfg.IsRemote() {
		var configOpts []func(*awsconfig.LoadOptions) error
		if cfg.S3.Profile != "" {
			configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(cfg.S3.Profile))
		}
		if cfg.S3.Region != "" {
			configOpts = append(configOpts, awsconfig.WithRegion(cfg.S3.Region))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return destination.NewS3(s3client.NewAWSClient(awsCfg), cfg.Dest)
	}

	dest, err := filepath.Abs(cfg.Dest)
	if err != nil {
		return nil, fmt.Errorf("resolve destination path: %w", err)
	}
	if err := cfg.ValidatePaths(resolveSymlinks(src), resolveSymlinks(dest)); err != nil {
		return nil, err
	}
	return destination.NewFS(dest), nil
}

// resolveSymlinks follows symlinks when the path exists and returns it
// unchanged otherwise.
func resolveSymlinks(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && progress.Interactive(f)
}
