package supersede

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteTextReport writes a human-readable summary of a pass.
func WriteTextReport(w io.Writer, s *Summary) error {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "SUPERSEDED RUNS")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "  Current Run:  %d\n", s.CurrentRunID)
	fmt.Fprintf(w, "  Branch:       %s\n", s.Branch)
	fmt.Fprintf(w, "  Head SHA:     %s\n", s.HeadSHA)
	fmt.Fprintf(w, "  Cancelled:    %d\n", s.Cancelled())
	fmt.Fprintf(w, "  Failures:     %d\n", s.Failures())
	fmt.Fprintln(w, "")

	if len(s.Pipelines) > 0 {
		fmt.Fprintln(w, "WORKFLOWS")
		fmt.Fprintln(w, strings.Repeat("-", 40))

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  Workflow\tRuns\tDuplicates\tGate\tResult")
		fmt.Fprintln(tw, "  --------\t----\t----------\t----\t------")
		for _, p := range s.Pipelines {
			fmt.Fprintf(tw, "  %s\t%d\t%d\t%s\t%s\n",
				p.Target,
				len(p.Candidates),
				len(p.Duplicates),
				p.Gate.State,
				pipelineStatus(p),
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w, "")
	}

	if err := writeOutcomeTable(w, s); err != nil {
		return err
	}

	fmt.Fprintln(w, strings.Repeat("=", 60))
	return nil
}

func writeOutcomeTable(w io.Writer, s *Summary) error {
	var rows int
	for _, p := range s.Pipelines {
		rows += len(p.Outcomes)
	}
	if rows == 0 {
		return nil
	}

	fmt.Fprintln(w, "CANCELLATIONS")
	fmt.Fprintln(w, strings.Repeat("-", 40))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  Run\tWorkflow\tSHA\tStatus")
	fmt.Fprintln(tw, "  ---\t--------\t---\t------")
	for _, p := range s.Pipelines {
		for _, o := range p.Outcomes {
			status := "✓"
			if !o.Cancelled() {
				status = "✗"
			}
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n", o.Run.ID, p.Target, shortSHA(o.Run.HeadSHA), status)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w, "")
	return nil
}

func pipelineStatus(p PipelineResult) string {
	if p.Err != nil {
		return "error"
	}
	return "ok"
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
