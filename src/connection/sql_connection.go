// Package connection contains the SQLConnection type and methods for manipulating and querying the connection
package connection

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jmoiron/sqlx"
	// go-mssqldb is required for mssql driver but isn't used in code
	_ "github.com/microsoft/go-mssqldb"
	"github.com/newrelic/infra-integrations-sdk/v3/log"
	"github.com/sqlhealth/mssql-monitor/src/args"
)

// SQLConnection represents a wrapper around a SQL Server connection
type SQLConnection struct {
	Connection *sqlx.DB
	Host       string
}

// NewConnection creates a new SQLConnection from args.
// One session is opened per monitoring cycle; sessions are never reused
// across cycles and a failure to open aborts the cycle, not the process.
func NewConnection(args *args.ArgumentList) (*SQLConnection, error) {
	db, err := sqlx.Connect("mssql", CreateConnectionURL(args))
	if err != nil {
		return nil, err
	}
	return &SQLConnection{
		Connection: db,
		Host:       args.Hostname,
	}, nil
}

// Close closes the SQL connection. If an error occurs
// it is logged as a warning.
func (sc SQLConnection) Close() {
	if err := sc.Connection.Close(); err != nil {
		log.Warn("Unable to close SQL Connection: %s", err.Error())
	}
}

// Query runs a query and loads results into v
func (sc SQLConnection) Query(v interface{}, query string) error {
	log.Debug("Running query: %s", query)
	return sc.Connection.Select(v, query)
}

// QueryContext runs a query under ctx and loads results into v
func (sc SQLConnection) QueryContext(ctx context.Context, v interface{}, query string) error {
	log.Debug("Running query: %s", query)
	return sc.Connection.SelectContext(ctx, v, query)
}

// Queryx runs a query and returns a set of rows
func (sc SQLConnection) Queryx(query string) (*sqlx.Rows, error) {
	return sc.Connection.Queryx(query)
}

// CreateConnectionURL takes in args and creates the connection string.
// All args should be validated before calling this.
// Under a trusted connection the URL carries no userinfo; go-mssqldb then
// authenticates with the operating system identity of the caller.
func CreateConnectionURL(args *args.ArgumentList) string {
	connectionURL := &url.URL{
		Scheme: "sqlserver",
		Host:   args.Hostname,
	}

	if !args.TrustedConnection {
		connectionURL.User = url.UserPassword(args.Username, args.Password)
	}

	// If port is present use port if not use instance
	if args.Port != "" {
		connectionURL.Host = fmt.Sprintf("%s:%s", connectionURL.Host, args.Port)
	} else {
		connectionURL.Path = args.Instance
	}

	// Format query parameters
	query := url.Values{}
	query.Add("database", args.Database)
	query.Add("dial timeout", args.Timeout)
	query.Add("connection timeout", args.Timeout)

	if args.ExtraConnectionURLArgs != "" {
		extraArgsMap, err := url.ParseQuery(args.ExtraConnectionURLArgs)
		if err == nil {
			for k, v := range extraArgsMap {
				query.Add(k, v[0])
			}
		} else {
			log.Warn("Could not successfully parse ExtraConnectionURLArgs.", err.Error())
		}
	}

	if args.EnableSSL {
		query.Add("encrypt", "true")
		query.Add("TrustServerCertificate", strconv.FormatBool(args.TrustServerCertificate))

		if !args.TrustServerCertificate {
			query.Add("certificate", args.CertificateLocation)
		}
	}

	connectionURL.RawQuery = query.Encode()

	return connectionURL.String()
}
