package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yuya-takeyama/raw2tiff-sync/pkg/executor"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/planner"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/policy"
)

func sampleOutcome() executor.RunOutcome {
	task := func(kind planner.Kind, name string) planner.Task {
		return planner.Task{Kind: kind, SourcePath: "/src/" + name, DestPath: "/dst/" + name}
	}
	return executor.RunOutcome{
		Results: []executor.Result{
			{Task: task(planner.KindConvert, "a.raw"), State: executor.StateDone,
				Outcome: policy.Outcome{Action: policy.ActionConverted, BytesWritten: 2048}},
			{Task: task(planner.KindRecompress, "b.tif"), State: executor.StateDone,
				Outcome: policy.Outcome{Action: policy.ActionFallbackCopied, BytesWritten: 100}},
			{Task: task(planner.KindPassthrough, "c.txt"), State: executor.StateDone,
				Outcome: policy.Outcome{Action: policy.ActionSkipped}},
			{Task: task(planner.KindConvert, "d.raw"), State: executor.StateFailed,
				Err: errors.New("decode raw /src/d.raw: raw: short header")},
			{Task: task(planner.KindConvert, "e.raw"), State: executor.StatePending},
		},
		Succeeded: 3,
		Failed:    1,
		Abandoned: 1,
	}
}

func TestBuildSyncResult(t *testing.T) {
	result := buildSyncResult(sampleOutcome())

	want := ResultSummary{
		Skipped:        1,
		Converted:      1,
		FallbackCopied: 1,
		Failed:         1,
		Abandoned:      1,
		BytesWritten:   2148,
	}
	if result.Summary != want {
		t.Errorf("Summary = %+v, want %+v", result.Summary, want)
	}
	if len(result.Files) != 3 {
		t.Errorf("Files = %+v", result.Files)
	}
	if len(result.Errors) != 1 || result.Errors[0].Action != "convert" || !strings.Contains(result.Errors[0].Error, "short header") {
		t.Errorf("Errors = %+v", result.Errors)
	}
	if result.Files[1].Action != "fallback-copied" {
		t.Errorf("Files[1].Action = %q", result.Files[1].Action)
	}
}

func TestRenderSummary(t *testing.T) {
	out := renderSummary(summary{
		Outcome: sampleOutcome(),
		Planned: 7,
		Elapsed: 1500 * time.Millisecond,
	})

	for _, want := range []string{"converted", "fallback-copied", "skipped", "failed", "abandoned", "not run", "2.1 kB", "7 tasks in 1.5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "recompressed") {
		t.Errorf("summary lists an action with no files:\n%s", out)
	}

	dry := renderSummary(summary{Outcome: sampleOutcome(), Planned: 5, DryRun: true})
	if !strings.Contains(strings.ToLower(dry), "dry run") {
		t.Errorf("dry run summary:\n%s", dry)
	}
}
