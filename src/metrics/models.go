package metrics

// CPUSample is the most recent scheduler monitor ring buffer record,
// reduced to the two percentages the server reports directly.
type CPUSample struct {
	SQLProcessPercent int `db:"sql_process_percent"`
	SystemIdlePercent int `db:"system_idle_percent"`
}

// OtherPercent is the share of CPU used by processes other than SQL Server.
// The three shares always sum to 100.
func (s CPUSample) OtherPercent() int {
	return 100 - s.SystemIdlePercent - s.SQLProcessPercent
}

// ActiveQueryRow is a currently executing request. WaitType is nil when
// the request is not waiting on anything.
type ActiveQueryRow struct {
	SessionID         int64   `db:"session_id"`
	Status            string  `db:"status"`
	Command           string  `db:"command"`
	CPUTimeMs         int64   `db:"cpu_time"`
	ElapsedSec        int64   `db:"elapsed_sec"`
	Reads             int64   `db:"reads"`
	Writes            int64   `db:"writes"`
	BlockingSessionID int64   `db:"blocking_session_id"`
	WaitType          *string `db:"wait_type"`
}

// BlockingRow is a request currently waiting on a lock held by another session
type BlockingRow struct {
	BlockingSessionID int64   `db:"blocking_session_id"`
	BlockedSessionID  int64   `db:"session_id"`
	WaitType          *string `db:"wait_type"`
	WaitSec           float64 `db:"wait_sec"`
	WaitResource      string  `db:"wait_resource"`
}
