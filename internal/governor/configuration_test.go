package governor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/rgcopy/internal/governor"
)

const (
	testConfigurationKeyConstant = "tools.copy"
)

func TestDefaultCommandConfigurationCarriesReservedPoolNames(testInstance *testing.T) {
	testInstance.Parallel()

	defaults := governor.DefaultCommandConfiguration()
	require.Equal(testInstance, []string{"internal", "default"}, defaults.ReservedPools)
	require.False(testInstance, defaults.Force)
	require.False(testInstance, defaults.DryRun)
}

func TestDefaultConfigurationValuesKeyedForLoader(testInstance *testing.T) {
	testInstance.Parallel()

	defaultValues := governor.DefaultConfigurationValues(testConfigurationKeyConstant)
	require.Contains(testInstance, defaultValues, "tools.copy.reserved_pools")
	require.Contains(testInstance, defaultValues, "tools.copy.source")
	require.Contains(testInstance, defaultValues, "tools.copy.dry_run")
	require.Equal(testInstance, []string{"internal", "default"}, defaultValues["tools.copy.reserved_pools"])
}

func TestCommandConfigurationSanitize(testInstance *testing.T) {
	testInstance.Parallel()

	configuration := governor.CommandConfiguration{
		Source:        "  SQLPROD01  ",
		Destination:   "\tSQLDR01",
		SourceUser:    " migrator ",
		IncludePools:  []string{" reporting ", "", "  "},
		ExcludePools:  []string{"etl", " "},
		ReservedPools: []string{" internal ", "default", ""},
	}

	sanitized := configuration.Sanitize()
	require.Equal(testInstance, "SQLPROD01", sanitized.Source)
	require.Equal(testInstance, "SQLDR01", sanitized.Destination)
	require.Equal(testInstance, "migrator", sanitized.SourceUser)
	require.Equal(testInstance, []string{"reporting"}, sanitized.IncludePools)
	require.Equal(testInstance, []string{"etl"}, sanitized.ExcludePools)
	require.Equal(testInstance, []string{"internal", "default"}, sanitized.ReservedPools)
}

func TestListCommandConfigurationSanitize(testInstance *testing.T) {
	testInstance.Parallel()

	configuration := governor.ListCommandConfiguration{Server: " SQLPROD01 ", User: " reader "}
	sanitized := configuration.Sanitize()
	require.Equal(testInstance, "SQLPROD01", sanitized.Server)
	require.Equal(testInstance, "reader", sanitized.User)
}
