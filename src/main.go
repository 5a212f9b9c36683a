// A point-in-time health monitor for Microsoft SQL Server: CPU utilization
// breakdown, active requests and blocking sessions, printed to the console
// once or repeatedly on a fixed interval.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	sdkArgs "github.com/newrelic/infra-integrations-sdk/v3/args"
	"github.com/newrelic/infra-integrations-sdk/v3/log"
	"github.com/sqlhealth/mssql-monitor/src/args"
	"github.com/sqlhealth/mssql-monitor/src/connection"
	"github.com/sqlhealth/mssql-monitor/src/monitor"
	"github.com/sqlhealth/mssql-monitor/src/validation"
)

var arguments args.ArgumentList

func main() {
	if err := sdkArgs.SetupArgs(&arguments); err != nil {
		log.Error("Error parsing arguments: %s", err.Error())
		os.Exit(1)
	}

	log.SetupLogging(arguments.Verbose)

	if err := arguments.Validate(); err != nil {
		log.Error("Configuration error: %s", err.Error())
		os.Exit(1)
	}

	preflight()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor.New(&arguments, os.Stdout).Run(ctx)
}

// preflight checks the server version on a throwaway session. Problems are
// warnings only; monitoring proceeds regardless.
func preflight() {
	conn, err := connection.NewConnection(&arguments)
	if err != nil {
		log.Warn("Version preflight could not connect: %s", err.Error())
		return
	}
	defer conn.Close()

	validation.CheckServerVersion(conn)
}
