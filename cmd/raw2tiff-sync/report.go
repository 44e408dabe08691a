package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yuya-takeyama/raw2tiff-sync/pkg/executor"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/planner"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/policy"
)

// PlanResult represents the planned tasks before execution
type PlanResult struct {
	Files   []PlanFile  `json:"files"`
	Summary PlanSummary `json:"summary"`
}

type PlanFile struct {
	Action string `json:"action"` // "convert", "recompress", "passthrough"
	Source string `json:"source"`
	Target string `json:"target"`
	Size   int64  `json:"size"`
}

type PlanSummary struct {
	Convert     int `json:"convert"`
	Recompress  int `json:"recompress"`
	Passthrough int `json:"passthrough"`
}

// SyncResult represents the observed execution results
type SyncResult struct {
	Files   []ResultFile  `json:"files"`
	Errors  []ErrorFile   `json:"errors"`
	Summary ResultSummary `json:"summary"`
}

type ResultFile struct {
	Action       string `json:"action"` // "skipped", "converted", "recompressed", "copied", "fallback-copied"
	Source       string `json:"source"`
	Target       string `json:"target"`
	BytesWritten int64  `json:"bytes_written"`
}

type ErrorFile struct {
	Action string `json:"action"` // task kind
	Source string `json:"source"`
	Target string `json:"target"`
	Error  string `json:"error"`
}

type ResultSummary struct {
	Skipped        int   `json:"skipped"`
	Converted      int   `json:"converted"`
	Recompressed   int   `json:"recompressed"`
	Copied         int   `json:"copied"`
	FallbackCopied int   `json:"fallback_copied"`
	Failed         int   `json:"failed"`
	Abandoned      int   `json:"abandoned"`
	BytesWritten   int64 `json:"bytes_written"`
}

func writePlanResult(path string, tasks []planner.Task) error {
	plan := PlanResult{Files: []PlanFile{}}

	for _, task := range tasks {
		plan.Files = append(plan.Files, PlanFile{
			Action: string(task.Kind),
			Source: getAbsolutePath(task.SourcePath),
			Target: task.DestPath,
			Size:   task.Size,
		})
		switch task.Kind {
		case planner.KindConvert:
			plan.Summary.Convert++
		case planner.KindRecompress:
			plan.Summary.Recompress++
		case planner.KindPassthrough:
			plan.Summary.Passthrough++
		}
	}

	return writeJSON(path, plan)
}

func buildSyncResult(outcome executor.RunOutcome) SyncResult {
	result := SyncResult{
		Files:  []ResultFile{},
		Errors: []ErrorFile{},
	}

	for _, res := range outcome.Results {
		source := getAbsolutePath(res.Task.SourcePath)
		switch res.State {
		case executor.StateFailed:
			result.Errors = append(result.Errors, ErrorFile{
				Action: string(res.Task.Kind),
				Source: source,
				Target: res.Task.DestPath,
				Error:  res.Err.Error(),
			})
			result.Summary.Failed++
		case executor.StateDone:
			result.Files = append(result.Files, ResultFile{
				Action:       string(res.Outcome.Action),
				Source:       source,
				Target:       res.Task.DestPath,
				BytesWritten: res.Outcome.BytesWritten,
			})
			switch res.Outcome.Action {
			case policy.ActionSkipped:
				result.Summary.Skipped++
			case policy.ActionConverted:
				result.Summary.Converted++
			case policy.ActionRecompressed:
				result.Summary.Recompressed++
			case policy.ActionCopied:
				result.Summary.Copied++
			case policy.ActionFallbackCopied:
				result.Summary.FallbackCopied++
			}
		default:
			result.Summary.Abandoned++
		}
		result.Summary.BytesWritten += res.Outcome.BytesWritten
	}

	return result
}

func writeSyncResult(path string, result SyncResult) error {
	return writeJSON(path, result)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func getAbsolutePath(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path // fallback to original path
	}
	return absPath
}
