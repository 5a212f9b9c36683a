// Package validation performs the startup preflight against the target server
package validation

import (
	"regexp"

	"github.com/blang/semver/v4"
	"github.com/newrelic/infra-integrations-sdk/v3/log"
	"github.com/sqlhealth/mssql-monitor/src/connection"
)

const (
	versionRegexPattern = `\b(\d+\.\d+\.\d+)\b`
	serverVersionQuery  = "SELECT @@VERSION"
)

var versionRegex = regexp.MustCompile(versionRegexPattern)

// Corresponding to SQL Server 2022, 2019, and 2017
var supportedMajorVersions = []uint64{16, 15, 14}

// CheckServerVersion queries the server build string and warns when the
// major version is outside the supported range. A preflight problem never
// stops the monitor; the snapshot queries may still work.
func CheckServerVersion(conn *connection.SQLConnection) bool {
	rows, err := conn.Queryx(serverVersionQuery)
	if err != nil {
		log.Warn("Could not query server version: %s", err.Error())
		return false
	}
	defer rows.Close()

	rows.Next()
	var serverVersion string
	if err := rows.Scan(&serverVersion); err != nil {
		log.Warn("Could not scan server version: %s", err.Error())
		return false
	}
	log.Debug("Server version: %s", serverVersion)

	versionStr := versionRegex.FindString(serverVersion)
	if versionStr == "" {
		log.Warn("Could not parse version from server version string")
		return false
	}

	version, err := semver.ParseTolerant(versionStr)
	if err != nil {
		log.Warn("Could not parse version '%s': %s", versionStr, err.Error())
		return false
	}

	for _, major := range supportedMajorVersions {
		if version.Major == major {
			return true
		}
	}

	log.Warn("SQL Server version %s is outside the supported range, results may be incomplete", version.String())
	return false
}
