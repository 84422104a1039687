package main

import (
	"fmt"
	"io"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
)

// renderReport prints the human-readable report.
func renderReport(w io.Writer, rep *model.RunReport) {
	fmt.Fprintf(w, "=== Throughput Report (%s) ===\n", rep.GeneratedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Cases: %d   Overall throughput: %.1f\n", rep.TotalCases, rep.OverallThroughput)

	for _, cat := range rep.Categories {
		fmt.Fprintf(w, "\n--- %s (composite %.1f", cat.Category, cat.Composite)
		if !cat.IncludedInOverall {
			fmt.Fprintf(w, ", excluded from overall")
		}
		fmt.Fprintf(w, ") ---\n")

		fmt.Fprintf(w, "On-time: %d/%d (%.0f%%)", cat.OnTime.OnTime, cat.OnTime.Completed, cat.OnTime.Rate)
		if cat.OnTime.AvgLatenessHours > 0 {
			fmt.Fprintf(w, "  avg lateness %.0fh", cat.OnTime.AvgLatenessHours)
		}
		if cat.OnTime.ExpeditedCompleted > 0 {
			fmt.Fprintf(w, "  expedited %.0f%%", cat.OnTime.ExpeditedRate)
		}
		fmt.Fprintln(w)

		fmt.Fprintf(w, "  %-12s  %5s  %7s  %7s  %7s  %5s  %10s\n",
			"STAGE", "N", "MEDIAN", "TARGET", "ADJ", "SCORE", "COMPLIANCE")
		for _, sr := range cat.Stages {
			if sr.Velocity.Insufficient {
				fmt.Fprintf(w, "  %-12s  %5d  %7s  %7s  %7s  %5s  %9.0f%%\n",
					sr.Stage, sr.Stats.SampleSize, "-", "-", "-", "-", sr.Compliance.Rate)
				continue
			}
			fmt.Fprintf(w, "  %-12s  %5d  %6.0fm  %6.0fm  %6.0fm  %5d  %9.0f%%\n",
				sr.Stage, sr.Stats.SampleSize, sr.Stats.Median,
				sr.Velocity.SmoothedTarget, sr.Velocity.AdjustedTarget,
				sr.Velocity.Score, sr.Compliance.Rate)
		}

		if len(cat.Risks) > 0 {
			fmt.Fprintf(w, "Active cases:\n")
			for _, r := range cat.Risks {
				flag := ""
				if r.Expedited {
					flag = " [expedited]"
				}
				fmt.Fprintf(w, "  %-20s  %-12s  risk=%-8s  conf=%-6s  due=%s%s\n",
					r.CaseID, r.Stage, r.Level, r.Confidence,
					r.Deadline.Format("2006-01-02"), flag)
			}
		}

		for _, rec := range cat.Recommendations {
			fmt.Fprintf(w, "  * %s\n", rec)
		}

		for _, sr := range cat.Stages {
			for _, ex := range sr.Exclusions {
				fmt.Fprintf(w, "  excluded: %s (%s) %s\n", ex.CaseID, sr.Stage, ex.Reason)
			}
			for _, id := range sr.Outliers {
				fmt.Fprintf(w, "  outlier:  %s (%s)\n", id, sr.Stage)
			}
		}
	}
}
