// Package args contains the argument list, defined as a struct, along with a method that validates passed-in args
package args

import (
	"errors"
	"fmt"

	sdkArgs "github.com/newrelic/infra-integrations-sdk/v3/args"
	"github.com/newrelic/infra-integrations-sdk/v3/log"
)

// Monitoring modes accepted by the Mode argument
const (
	ModeSnapshot   = "snapshot"
	ModeContinuous = "continuous"
)

// ArgumentList struct that holds all monitor arguments
type ArgumentList struct {
	sdkArgs.DefaultArgumentList
	Hostname               string `default:"127.0.0.1" help:"The Microsoft SQL Server connection host name"`
	Port                   string `default:"" help:"The Microsoft SQL Server port to connect to. Only needed when instance not specified"`
	Instance               string `default:"" help:"The Microsoft SQL Server instance to connect to"`
	Database               string `default:"master" help:"The database to connect to"`
	TrustedConnection      bool   `default:"true" help:"If true connect with the operating system identity of the caller instead of a username/password pair"`
	Username               string `default:"" help:"The Microsoft SQL Server connection user name. Required when trusted_connection is disabled"`
	Password               string `default:"" help:"The Microsoft SQL Server connection password"`
	EnableSSL              bool   `default:"false" help:"If true will use SSL encryption, false will not use encryption"`
	TrustServerCertificate bool   `default:"false" help:"If true server certificate is not verified for SSL. If false certificate will be verified against supplied certificate"`
	CertificateLocation    string `default:"" help:"Certificate file to verify SSL encryption against"`
	ExtraConnectionURLArgs string `default:"" help:"Appends additional parameters to the connection URL, in the format 'arg1=value1&arg2=value2'"`
	Timeout                string `default:"30" help:"Timeout in seconds for a single SQL query. Set 0 for no timeout"`
	Mode                   string `default:"snapshot" help:"Monitoring mode, either 'snapshot' for a single health report or 'continuous' to repeat on an interval"`
	Interval               int    `default:"5" help:"Seconds between monitoring cycles in continuous mode"`
	Duration               int    `default:"60" help:"Total seconds to keep monitoring in continuous mode"`
}

// Validate validates monitor specific arguments
func (al *ArgumentList) Validate() error {
	if al.Hostname == "" {
		return errors.New("invalid configuration: must specify a hostname")
	}

	if al.Port != "" && al.Instance != "" {
		return errors.New("invalid configuration: specify either port or instance but not both")
	} else if al.Port == "" && al.Instance == "" {
		log.Info("Both port and instance were not specified using default port of 1433")
		al.Port = "1433"
	}

	if !al.TrustedConnection && al.Username == "" {
		return errors.New("invalid configuration: must specify a username when trusted connection is disabled")
	}

	if al.EnableSSL && (!al.TrustServerCertificate && al.CertificateLocation == "") {
		return errors.New("invalid configuration: must specify a certificate file when using SSL and not trusting server certificate")
	}

	switch al.Mode {
	case ModeSnapshot:
	case ModeContinuous:
		if al.Interval <= 0 {
			return errors.New("invalid configuration: interval must be greater than zero")
		}
		if al.Duration <= 0 {
			return errors.New("invalid configuration: duration must be greater than zero")
		}
	default:
		return fmt.Errorf("invalid configuration: unknown mode '%s'", al.Mode)
	}

	return nil
}
