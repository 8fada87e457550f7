package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	// Registers the sqlserver driver with database/sql.
	_ "github.com/denisenkom/go-mssqldb"
)

const (
	sqlServerDriverNameConstant            = "sqlserver"
	sqlServerURLSchemeConstant             = "sqlserver"
	databaseQueryParameterNameConstant     = "database"
	applicationQueryParameterNameConstant  = "app name"
	applicationNameValueConstant           = "rgcopy"
	instanceSeparatorConstant              = `\`
	portSeparatorConstant                  = ","
	hostPortFormatConstant                 = "%s:%s"
	serverRequiredMessageConstant          = "server name must be provided"
	connectionOpenErrorTemplateConstant    = "unable to open connection to %s: %w"
	connectionVerifyErrorTemplateConstant  = "unable to verify connection to %s: %w"
)

var errServerRequired = errors.New(serverRequiredMessageConstant)

// ConnectionDetails describes one server endpoint and its optional SQL credentials.
type ConnectionDetails struct {
	Server   string
	User     string
	Password string
	Database string
}

// BuildConnectionString renders the sqlserver URL consumed by the go-mssqldb driver.
//
// Server accepts "host", "host,port", and "host\instance" spellings. When no
// user is supplied the driver falls back to a trusted connection.
func (details ConnectionDetails) BuildConnectionString() (string, error) {
	trimmedServer := strings.TrimSpace(details.Server)
	if len(trimmedServer) == 0 {
		return "", errServerRequired
	}

	hostPart := trimmedServer
	instancePart := ""
	if separatorIndex := strings.Index(hostPart, instanceSeparatorConstant); separatorIndex >= 0 {
		instancePart = hostPart[separatorIndex+1:]
		hostPart = hostPart[:separatorIndex]
	}
	if separatorIndex := strings.Index(hostPart, portSeparatorConstant); separatorIndex >= 0 {
		hostPart = fmt.Sprintf(hostPortFormatConstant, hostPart[:separatorIndex], strings.TrimSpace(hostPart[separatorIndex+1:]))
	}

	queryParameters := url.Values{}
	queryParameters.Set(applicationQueryParameterNameConstant, applicationNameValueConstant)
	if len(strings.TrimSpace(details.Database)) > 0 {
		queryParameters.Set(databaseQueryParameterNameConstant, strings.TrimSpace(details.Database))
	}

	connectionURL := url.URL{
		Scheme:   sqlServerURLSchemeConstant,
		Host:     hostPart,
		RawQuery: queryParameters.Encode(),
	}
	if len(instancePart) > 0 {
		connectionURL.Path = instancePart
	}
	if len(strings.TrimSpace(details.User)) > 0 {
		connectionURL.User = url.UserPassword(details.User, details.Password)
	}

	return connectionURL.String(), nil
}

// Connect opens and verifies a session against the described server.
func Connect(executionContext context.Context, details ConnectionDetails) (*Gateway, error) {
	connectionString, buildError := details.BuildConnectionString()
	if buildError != nil {
		return nil, buildError
	}

	databaseHandle, openError := sql.Open(sqlServerDriverNameConstant, connectionString)
	if openError != nil {
		return nil, fmt.Errorf(connectionOpenErrorTemplateConstant, details.Server, openError)
	}

	if pingError := databaseHandle.PingContext(executionContext); pingError != nil {
		_ = databaseHandle.Close()
		return nil, fmt.Errorf(connectionVerifyErrorTemplateConstant, details.Server, pingError)
	}

	return NewGateway(databaseHandle), nil
}
