package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/executor"
	"github.com/yuya-takeyama/raw2tiff-sync/pkg/policy"
)

type summary struct {
	Outcome executor.RunOutcome
	Planned int
	DryRun  bool
	Elapsed time.Duration
}

var summaryActions = []policy.Action{
	policy.ActionConverted,
	policy.ActionRecompressed,
	policy.ActionCopied,
	policy.ActionFallbackCopied,
	policy.ActionSkipped,
}

func printSummary(w io.Writer, s summary) {
	fmt.Fprintln(w, renderSummary(s))
}

func renderSummary(s summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"Result", "Files"})

	counts := s.Outcome.Actions()
	for _, action := range summaryActions {
		if counts[action] == 0 {
			continue
		}
		tw.AppendRow(table.Row{string(action), strconv.Itoa(counts[action])})
	}
	if s.Outcome.Failed > 0 {
		tw.AppendRow(table.Row{"failed", strconv.Itoa(s.Outcome.Failed)})
	}
	if s.Outcome.Abandoned > 0 {
		tw.AppendRow(table.Row{"abandoned", strconv.Itoa(s.Outcome.Abandoned)})
	}
	if notRun := s.Planned - len(s.Outcome.Results); notRun > 0 {
		tw.AppendRow(table.Row{"not run", strconv.Itoa(notRun)})
	}

	written := humanize.Bytes(uint64(s.Outcome.BytesWritten()))
	if s.DryRun {
		written = "dry run"
	}
	tw.AppendFooter(table.Row{"written", written})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft, AlignFooter: text.AlignRight},
	})
	tw.SetCaption("%d tasks in %s", s.Planned, s.Elapsed.Round(time.Millisecond))

	return tw.Render()
}
