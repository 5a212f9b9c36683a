// Package monitor drives monitoring cycles: one session per cycle, the
// three diagnostic fetches in a fixed order, each block rendered as soon
// as its fetch completes.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/newrelic/infra-integrations-sdk/v3/log"
	"github.com/sqlhealth/mssql-monitor/src/args"
	"github.com/sqlhealth/mssql-monitor/src/connection"
	"github.com/sqlhealth/mssql-monitor/src/metrics"
	"github.com/sqlhealth/mssql-monitor/src/report"
)

// Classification of a failed cycle. Neither error stops the monitor;
// continuous mode reports the failure and moves on to the next cycle.
var (
	ErrConnection = errors.New("could not open SQL Server session")
	ErrQuery      = errors.New("query failed")
)

// Monitor runs monitoring cycles against a single server. Cycles are
// strictly sequential and hold no state across one another.
type Monitor struct {
	arguments *args.ArgumentList
	out       io.Writer

	// Overridable in tests
	now            func() time.Time
	sleep          func(ctx context.Context, d time.Duration) bool
	openConnection func(*args.ArgumentList) (*connection.SQLConnection, error)
}

// New creates a Monitor writing snapshots to out
func New(arguments *args.ArgumentList, out io.Writer) *Monitor {
	return &Monitor{
		arguments:      arguments,
		out:            out,
		now:            time.Now,
		sleep:          sleepContext,
		openConnection: connection.NewConnection,
	}
}

// Run executes the configured monitoring mode
func (m *Monitor) Run(ctx context.Context) {
	switch m.arguments.Mode {
	case args.ModeContinuous:
		interval := time.Duration(m.arguments.Interval) * time.Second
		duration := time.Duration(m.arguments.Duration) * time.Second
		m.RunContinuous(ctx, interval, duration)
	default:
		if err := m.RunOnce(); err != nil {
			m.reportError(err)
		}
	}
}

// RunOnce executes a single monitoring cycle: open a session, render the
// snapshot blocks in order, close the session. Blocks already rendered
// when a later fetch fails are left in place. The classified error is
// returned for the caller to report; nothing is retried.
func (m *Monitor) RunOnce() error {
	conn, err := m.openConnection(m.arguments)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrConnection, err)
	}
	defer conn.Close()

	collector, err := metrics.NewCollector(conn)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrQuery, err)
	}

	ctx, cancel := m.queryContext()
	defer cancel()

	reporter := report.Reporter{Out: m.out}
	reporter.Header(m.now())

	sample, err := collector.CPUSample(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrQuery, err)
	}
	reporter.CPU(sample)

	active, err := collector.ActiveQueries(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrQuery, err)
	}
	reporter.ActiveQueries(active)

	blocking, err := collector.BlockingSessions(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrQuery, err)
	}
	reporter.Blocking(blocking)

	return nil
}

// RunContinuous repeats cycles every interval until duration has elapsed
// or ctx is cancelled. Cancellation is observed at the sleep boundary
// only; an in-flight cycle always finishes.
func (m *Monitor) RunContinuous(ctx context.Context, interval, duration time.Duration) {
	fmt.Fprintf(m.out, "Starting continuous monitoring (every %.0fs for %.0fs)\n", interval.Seconds(), duration.Seconds())
	fmt.Fprintln(m.out, "Press Ctrl+C to stop")
	fmt.Fprintln(m.out)

	deadline := m.now().Add(duration)
	for m.now().Before(deadline) {
		if err := m.RunOnce(); err != nil {
			m.reportError(err)
		}

		fmt.Fprintf(m.out, "\nRefreshing in %.0f seconds...\n", interval.Seconds())
		if !m.sleep(ctx, interval) {
			fmt.Fprintln(m.out, "\nMonitoring stopped by user")
			return
		}
	}
}

// reportError writes the single failure line a cycle is allowed to leave behind
func (m *Monitor) reportError(err error) {
	log.Debug("Monitoring cycle failed: %s", err.Error())
	fmt.Fprintf(m.out, "\n[ERROR] %s\n", err)
}

// queryContext derives the per-query deadline from the configured timeout.
// A timeout of 0 keeps queries unbounded, matching servers that are slow
// rather than down. The context is deliberately not derived from the run
// context: an operator interrupt takes effect at the sleep boundary, never
// mid-query.
func (m *Monitor) queryContext() (context.Context, context.CancelFunc) {
	seconds, err := strconv.Atoi(m.arguments.Timeout)
	if err != nil || seconds <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), time.Duration(seconds)*time.Second)
}

// sleepContext waits for d, returning false when ctx is cancelled first
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
