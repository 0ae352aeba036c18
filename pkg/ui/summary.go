package ui

import (
	"fmt"
	"time"
)

// RunSummary holds the figures printed at the end of an export run.
type RunSummary struct {
	Exported    int
	Skipped     int
	Errors      int
	Pages       int
	Duration    time.Duration
	RateLimited bool
	HitBoundary bool
}

// PrintSummary prints the end-of-run summary. A rate-limited run gets the
// resume instruction instead of the completion banner.
func PrintSummary(s RunSummary) {
	fmt.Println()
	PrintHighlight("─── Export Summary ───")
	PrintInfo("Exported", fmt.Sprintf("%d", s.Exported))
	PrintInfo("Skipped", fmt.Sprintf("%d", s.Skipped))
	if s.Errors > 0 {
		fmt.Printf("%s: %s\n", Cyan("Errors"), Red(fmt.Sprintf("%d", s.Errors)))
	} else {
		PrintInfo("Errors", "0")
	}
	PrintInfo("Pages", fmt.Sprintf("%d", s.Pages))
	PrintInfo("Duration", s.Duration.Round(time.Second).String())

	fmt.Println()
	switch {
	case s.RateLimited:
		PrintWarning("Rate limit reached. Progress has been saved.")
		fmt.Println(Dim("Run the same command again later to resume where you left off."))
	case s.HitBoundary:
		PrintSuccess("Caught up with the previous run. Export complete.")
	default:
		PrintSuccess("Export complete.")
	}
}
