// Package metrics contains the row models and the collector that runs the
// monitor's diagnostic queries against a connection.
package metrics

import (
	"context"

	"github.com/sqlhealth/mssql-monitor/src/connection"
	"github.com/sqlhealth/mssql-monitor/src/queries"
)

// Collector runs the diagnostic queries for one monitoring cycle.
// The three fetches are independent snapshots; result sets sharing session
// ids are deliberately not correlated.
type Collector struct {
	conn    *connection.SQLConnection
	catalog queries.Catalog
}

// NewCollector creates a Collector bound to an open connection
func NewCollector(conn *connection.SQLConnection) (*Collector, error) {
	catalog, err := queries.Load()
	if err != nil {
		return nil, err
	}
	return &Collector{conn: conn, catalog: catalog}, nil
}

// CPUSample fetches the most recent CPU utilization breakdown.
// Returns nil without error when the ring buffer has no record yet.
func (c *Collector) CPUSample(ctx context.Context) (*CPUSample, error) {
	query, err := c.catalog.Get(queries.CPUSample)
	if err != nil {
		return nil, err
	}

	samples := make([]CPUSample, 0, 1)
	if err := c.conn.QueryContext(ctx, &samples, query); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, nil
	}
	return &samples[0], nil
}

// ActiveQueries fetches all currently executing user requests, most
// CPU-hungry first. Order among ties is whatever the server returns.
func (c *Collector) ActiveQueries(ctx context.Context) ([]ActiveQueryRow, error) {
	query, err := c.catalog.Get(queries.ActiveQueries)
	if err != nil {
		return nil, err
	}

	rows := make([]ActiveQueryRow, 0)
	if err := c.conn.QueryContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}

// BlockingSessions fetches all requests currently blocked by another session
func (c *Collector) BlockingSessions(ctx context.Context) ([]BlockingRow, error) {
	query, err := c.catalog.Get(queries.BlockingSessions)
	if err != nil {
		return nil, err
	}

	rows := make([]BlockingRow, 0)
	if err := c.conn.QueryContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}
