package monitor

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sqlhealth/mssql-monitor/src/args"
	"github.com/sqlhealth/mssql-monitor/src/connection"
	"github.com/sqlhealth/mssql-monitor/src/queries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/DATA-DOG/go-sqlmock.v1"
)

func testArguments() *args.ArgumentList {
	return &args.ArgumentList{
		Hostname:          "localhost",
		Port:              "1433",
		Database:          "master",
		TrustedConnection: true,
		Timeout:           "30",
		Mode:              args.ModeSnapshot,
		Interval:          5,
		Duration:          60,
	}
}

// CreateMockSQL creates a Test SQLConnection.
func CreateMockSQL(t *testing.T) (con *connection.SQLConnection, mock sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Errorf("Unexpected error while mocking: %s", err.Error())
		t.FailNow()
	}

	con = &connection.SQLConnection{
		Connection: sqlx.NewDb(mockDB, "sqlmock"),
	}

	return
}

func queryPattern(t *testing.T, name string) string {
	catalog, err := queries.Load()
	require.NoError(t, err)

	query, err := catalog.Get(name)
	require.NoError(t, err)

	return regexp.QuoteMeta(query)
}

var activeQueryColumns = []string{
	"session_id", "status", "command", "cpu_time", "elapsed_sec",
	"reads", "writes", "blocking_session_id", "wait_type",
}

var blockingColumns = []string{
	"blocking_session_id", "session_id", "wait_type", "wait_sec", "wait_resource",
}

// expectQuietServer queues a full healthy cycle: one CPU sample, no
// active queries, no blocking.
func expectQuietServer(t *testing.T, mock sqlmock.Sqlmock) {
	cpuRows := sqlmock.NewRows([]string{"sql_process_percent", "system_idle_percent"}).
		AddRow(20, 70)
	mock.ExpectQuery(queryPattern(t, queries.CPUSample)).WillReturnRows(cpuRows)
	mock.ExpectQuery(queryPattern(t, queries.ActiveQueries)).
		WillReturnRows(sqlmock.NewRows(activeQueryColumns))
	mock.ExpectQuery(queryPattern(t, queries.BlockingSessions)).
		WillReturnRows(sqlmock.NewRows(blockingColumns))
	mock.ExpectClose()
}

func Test_RunOnce_RendersSnapshot(t *testing.T) {
	out := &bytes.Buffer{}
	m := New(testArguments(), out)

	conn, mock := CreateMockSQL(t)
	expectQuietServer(t, mock)
	m.openConnection = func(*args.ArgumentList) (*connection.SQLConnection, error) {
		return conn, nil
	}
	m.now = func() time.Time {
		return time.Date(2024, time.December, 23, 10, 30, 0, 0, time.UTC)
	}

	require.NoError(t, m.RunOnce())

	assert.Contains(t, out.String(), "SQL SERVER HEALTH MONITOR")
	assert.Contains(t, out.String(), "Time: 2024-12-23 10:30:00")
	assert.Contains(t, out.String(), "SQL Server:  20%")
	assert.Contains(t, out.String(), "Other:       10%")
	assert.Contains(t, out.String(), "Idle:        70%")
	assert.Contains(t, out.String(), "No active queries")
	assert.Contains(t, out.String(), "No blocking detected")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_RunOnce_ConnectionFailure_RunsNoQueries(t *testing.T) {
	out := &bytes.Buffer{}
	m := New(testArguments(), out)
	m.openConnection = func(*args.ArgumentList) (*connection.SQLConnection, error) {
		return nil, errors.New("unable to open tcp connection")
	}

	err := m.RunOnce()

	assert.ErrorIs(t, err, ErrConnection)
	assert.Empty(t, out.String(), "a failed session open must not render anything")
}

func Test_RunOnce_SecondFetchFailure_KeepsPartialOutput(t *testing.T) {
	out := &bytes.Buffer{}
	m := New(testArguments(), out)

	conn, mock := CreateMockSQL(t)
	cpuRows := sqlmock.NewRows([]string{"sql_process_percent", "system_idle_percent"}).
		AddRow(20, 70)
	mock.ExpectQuery(queryPattern(t, queries.CPUSample)).WillReturnRows(cpuRows)
	mock.ExpectQuery(queryPattern(t, queries.ActiveQueries)).
		WillReturnError(errors.New("VIEW SERVER STATE permission was denied"))
	mock.ExpectClose()
	m.openConnection = func(*args.ArgumentList) (*connection.SQLConnection, error) {
		return conn, nil
	}

	err := m.RunOnce()

	assert.ErrorIs(t, err, ErrQuery)
	assert.Contains(t, out.String(), "SQL SERVER HEALTH MONITOR")
	assert.Contains(t, out.String(), "SQL Server:  20%")
	assert.NotContains(t, out.String(), "[ACTIVE QUERIES]")
	assert.NotContains(t, out.String(), "[BLOCKING]")
}

func Test_RunContinuous_CycleCount(t *testing.T) {
	out := &bytes.Buffer{}
	m := New(testArguments(), out)

	// Simulated clock that only advances while sleeping
	current := time.Date(2024, time.December, 23, 10, 30, 0, 0, time.UTC)
	m.now = func() time.Time { return current }
	m.sleep = func(_ context.Context, d time.Duration) bool {
		current = current.Add(d)
		return true
	}

	cycles := 0
	m.openConnection = func(*args.ArgumentList) (*connection.SQLConnection, error) {
		cycles++
		conn, mock := CreateMockSQL(t)
		expectQuietServer(t, mock)
		return conn, nil
	}

	m.RunContinuous(context.Background(), 5*time.Second, 12*time.Second)

	// Cycles run at t=0, 5 and 10; the t=15 deadline check stops the loop
	assert.Equal(t, 3, cycles)
	assert.NotContains(t, out.String(), "Monitoring stopped by user")
}

func Test_RunContinuous_InterruptDuringSleep(t *testing.T) {
	out := &bytes.Buffer{}
	m := New(testArguments(), out)

	current := time.Date(2024, time.December, 23, 10, 30, 0, 0, time.UTC)
	m.now = func() time.Time { return current }
	m.sleep = func(context.Context, time.Duration) bool { return false }

	cycles := 0
	m.openConnection = func(*args.ArgumentList) (*connection.SQLConnection, error) {
		cycles++
		conn, mock := CreateMockSQL(t)
		expectQuietServer(t, mock)
		return conn, nil
	}

	m.RunContinuous(context.Background(), 5*time.Second, 60*time.Second)

	assert.Equal(t, 1, cycles, "no further cycle may run after the interrupt")
	assert.Equal(t, 1, strings.Count(out.String(), "Monitoring stopped by user"))
}

func Test_RunContinuous_FailedCyclesContinue(t *testing.T) {
	out := &bytes.Buffer{}
	m := New(testArguments(), out)

	current := time.Date(2024, time.December, 23, 10, 30, 0, 0, time.UTC)
	m.now = func() time.Time { return current }
	m.sleep = func(_ context.Context, d time.Duration) bool {
		current = current.Add(d)
		return true
	}
	m.openConnection = func(*args.ArgumentList) (*connection.SQLConnection, error) {
		return nil, errors.New("unable to open tcp connection")
	}

	m.RunContinuous(context.Background(), 5*time.Second, 12*time.Second)

	// Every cycle fails identically and the loop keeps its schedule
	assert.Equal(t, 3, strings.Count(out.String(), "[ERROR]"))
}

func Test_Run_SnapshotMode_ReportsError(t *testing.T) {
	out := &bytes.Buffer{}
	m := New(testArguments(), out)
	m.openConnection = func(*args.ArgumentList) (*connection.SQLConnection, error) {
		return nil, errors.New("login failed for user")
	}

	m.Run(context.Background())

	assert.Equal(t, 1, strings.Count(out.String(), "[ERROR]"))
	assert.Contains(t, out.String(), "login failed for user")
}
