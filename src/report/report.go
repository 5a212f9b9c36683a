// Package report renders monitoring results as fixed-width text blocks
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sqlhealth/mssql-monitor/src/metrics"
)

const (
	lineWidth  = 80
	timeFormat = "2006-01-02 15:04:05"
)

// Reporter writes snapshot blocks to Out. Rendering has no side effects
// beyond the writes; nothing is returned for downstream consumption.
type Reporter struct {
	Out io.Writer
}

// Header writes the banner and timestamp that open every snapshot
func (r Reporter) Header(now time.Time) {
	banner := strings.Repeat("=", lineWidth)
	fmt.Fprintln(r.Out, banner)
	fmt.Fprintln(r.Out, "SQL SERVER HEALTH MONITOR")
	fmt.Fprintf(r.Out, "Time: %s\n", now.Format(timeFormat))
	fmt.Fprintln(r.Out, banner)
}

// CPU writes the CPU utilization breakdown. A nil sample means the
// scheduler monitor ring buffer had no record to report.
func (r Reporter) CPU(sample *metrics.CPUSample) {
	fmt.Fprintln(r.Out, "\n[CPU]")
	if sample == nil {
		fmt.Fprintln(r.Out, "No CPU sample available")
		return
	}

	fmt.Fprintf(r.Out, "SQL Server:  %d%%\n", sample.SQLProcessPercent)
	fmt.Fprintf(r.Out, "Other:       %d%%\n", sample.OtherPercent())
	fmt.Fprintf(r.Out, "Idle:        %d%%\n", sample.SystemIdlePercent)
}

// ActiveQueries writes one row per executing request, in the order delivered
func (r Reporter) ActiveQueries(rows []metrics.ActiveQueryRow) {
	fmt.Fprintln(r.Out, "\n[ACTIVE QUERIES]")
	if len(rows) == 0 {
		fmt.Fprintln(r.Out, "No active queries")
		return
	}

	fmt.Fprintf(r.Out, "%-10s %-12s %-20s %-10s %-10s %-10s\n",
		"Session", "Status", "Command", "CPU(ms)", "Time(s)", "Blocking")
	fmt.Fprintln(r.Out, strings.Repeat("-", lineWidth))
	for _, row := range rows {
		fmt.Fprintf(r.Out, "%-10d %-12s %-20s %-10d %-10d %-10d\n",
			row.SessionID, row.Status, row.Command, row.CPUTimeMs, row.ElapsedSec, row.BlockingSessionID)
	}
}

// Blocking writes one row per blocked session
func (r Reporter) Blocking(rows []metrics.BlockingRow) {
	fmt.Fprintln(r.Out, "\n[BLOCKING]")
	if len(rows) == 0 {
		fmt.Fprintln(r.Out, "No blocking detected")
		return
	}

	fmt.Fprintf(r.Out, "%-10s %-10s %-20s %-10s %-30s\n",
		"Blocker", "Blocked", "Wait Type", "Wait(s)", "Resource")
	fmt.Fprintln(r.Out, strings.Repeat("-", lineWidth))
	for _, row := range rows {
		fmt.Fprintf(r.Out, "%-10d %-10d %-20s %-10.1f %-30s\n",
			row.BlockingSessionID, row.BlockedSessionID, waitTypeOrBlank(row.WaitType), row.WaitSec, row.WaitResource)
	}
}

func waitTypeOrBlank(waitType *string) string {
	if waitType == nil {
		return ""
	}
	return *waitType
}
