package usecase

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"dev.rubentxu.background-orchestrator/internal/core/domain/job"
	"dev.rubentxu.background-orchestrator/internal/core/domain/resource"
)

// recentLimit caps how many finished jobs the report lists.
const recentLimit = 10

// FormatStatusReport renders jobs and usage for terminal display.
func FormatStatusReport(jobs []job.Job, usage resource.Usage, now time.Time) string {
	counts := make(map[job.Status]int, len(job.AllStatuses()))
	var running, finished []job.Job
	for _, j := range jobs {
		counts[j.Status]++
		switch {
		case j.Status == job.Running:
			running = append(running, j)
		case j.IsTerminal():
			finished = append(finished, j)
		}
	}

	var b strings.Builder
	b.WriteString("Background Jobs\n")
	b.WriteString("===============\n")
	fmt.Fprintf(&b, "Total: %d", len(jobs))
	for _, s := range job.AllStatuses() {
		fmt.Fprintf(&b, " | %s: %d", s, counts[s])
	}
	b.WriteString("\n")

	if len(running) > 0 {
		b.WriteString("\nRunning:\n")
		w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		for _, j := range running {
			fmt.Fprintf(w, "  %s\t%s\tpid=%d\telapsed=%s\n", j.ID, commandLine(j), j.PID, formatDuration(j.Elapsed(now)))
		}
		_ = w.Flush()
	}

	if len(finished) > 0 {
		if len(finished) > recentLimit {
			finished = finished[len(finished)-recentLimit:]
		}
		b.WriteString("\nRecent:\n")
		w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		for _, j := range finished {
			line := fmt.Sprintf("  %s\t%s\t%s\t%s\tduration=%s", j.ID, commandLine(j), j.Status, exitLabel(j), formatDuration(j.Elapsed(now)))
			if j.Error != "" {
				line += "\terror=" + firstLine(j.Error)
			}
			fmt.Fprintln(w, line)
		}
		_ = w.Flush()
	}

	fmt.Fprintf(&b, "\nMemory: %s heap (peak %s) | active jobs: %d\n",
		formatBytes(usage.MemoryBytes), formatBytes(usage.PeakMemoryBytes), usage.ActiveJobs)
	return b.String()
}

func commandLine(j job.Job) string {
	if len(j.Args) == 0 {
		return j.Command
	}
	return j.Command + " " + strings.Join(j.Args, " ")
}

func exitLabel(j job.Job) string {
	if j.ExitCode == nil {
		return "exit=-"
	}
	return fmt.Sprintf("exit=%d", *j.ExitCode)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
