package mssql_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/rgcopy/internal/mssql"
)

func TestQuoteIdentifierEscapesClosingBrackets(testInstance *testing.T) {
	testInstance.Parallel()

	require.Equal(testInstance, "[reporting]", mssql.QuoteIdentifier("reporting"))
	require.Equal(testInstance, "[odd]]name]", mssql.QuoteIdentifier("odd]name"))
}

func TestQuoteLiteralEscapesEmbeddedQuotes(testInstance *testing.T) {
	testInstance.Parallel()

	require.Equal(testInstance, "'SQLPROD01'", mssql.QuoteLiteral("SQLPROD01"))
	require.Equal(testInstance, "'o''brien'", mssql.QuoteLiteral("o'brien"))
}

func TestScriptResourcePool(testInstance *testing.T) {
	testInstance.Parallel()

	definition := mssql.ResourcePoolDefinition{
		Name:             "reporting",
		MinCPUPercent:    5,
		MaxCPUPercent:    80,
		CapCPUPercent:    90,
		MinMemoryPercent: 10,
		MaxMemoryPercent: 60,
	}

	scriptedStatement := mssql.ScriptResourcePool(definition)
	require.Equal(
		testInstance,
		"CREATE RESOURCE POOL [reporting] WITH (MIN_CPU_PERCENT = 5, MAX_CPU_PERCENT = 80, CAP_CPU_PERCENT = 90, MIN_MEMORY_PERCENT = 10, MAX_MEMORY_PERCENT = 60);",
		scriptedStatement,
	)
}

func TestScriptResourcePoolIncludesIOPSSettingsWhenPresent(testInstance *testing.T) {
	testInstance.Parallel()

	definition := mssql.ResourcePoolDefinition{
		Name:             "etl",
		MaxCPUPercent:    100,
		CapCPUPercent:    100,
		MaxMemoryPercent: 100,
		MinIOPSPerVolume: 100,
		MaxIOPSPerVolume: 5000,
	}

	scriptedStatement := mssql.ScriptResourcePool(definition)
	require.Contains(testInstance, scriptedStatement, "MIN_IOPS_PER_VOLUME = 100")
	require.Contains(testInstance, scriptedStatement, "MAX_IOPS_PER_VOLUME = 5000")
}

func TestScriptResourcePoolOmitsUnreportedSettings(testInstance *testing.T) {
	testInstance.Parallel()

	definition := mssql.ResourcePoolDefinition{
		Name:             "legacy",
		MaxCPUPercent:    50,
		MaxMemoryPercent: 50,
	}

	scriptedStatement := mssql.ScriptResourcePool(definition)
	require.NotContains(testInstance, scriptedStatement, "CAP_CPU_PERCENT")
	require.NotContains(testInstance, scriptedStatement, "IOPS_PER_VOLUME")
}

func TestScriptWorkloadGroup(testInstance *testing.T) {
	testInstance.Parallel()

	definition := mssql.WorkloadGroupDefinition{
		Name:                             "reporting_high",
		PoolName:                         "reporting",
		Importance:                       "High",
		RequestMaxMemoryGrantPercent:     25,
		RequestMaxCPUTimeSeconds:         300,
		RequestMemoryGrantTimeoutSeconds: 60,
		MaxDegreeOfParallelism:           4,
		GroupMaxRequests:                 10,
	}

	scriptedStatement := mssql.ScriptWorkloadGroup(definition)
	require.Equal(
		testInstance,
		"CREATE WORKLOAD GROUP [reporting_high] WITH (IMPORTANCE = HIGH, REQUEST_MAX_MEMORY_GRANT_PERCENT = 25, REQUEST_MAX_CPU_TIME_SEC = 300, REQUEST_MEMORY_GRANT_TIMEOUT_SEC = 60, MAX_DOP = 4, GROUP_MAX_REQUESTS = 10) USING [reporting];",
		scriptedStatement,
	)
}

func TestScriptWorkloadGroupDefaultsImportance(testInstance *testing.T) {
	testInstance.Parallel()

	definition := mssql.WorkloadGroupDefinition{Name: "etl_jobs", PoolName: "etl"}
	require.Contains(testInstance, mssql.ScriptWorkloadGroup(definition), "IMPORTANCE = MEDIUM")
}

func TestScriptGovernorState(testInstance *testing.T) {
	testCases := []struct {
		name               string
		state              mssql.GovernorState
		expectedStatements []string
	}{
		{
			name:               "enabled_without_classifier_produces_nothing",
			state:              mssql.GovernorState{Enabled: true},
			expectedStatements: nil,
		},
		{
			name:  "disabled_governor_scripts_disable",
			state: mssql.GovernorState{},
			expectedStatements: []string{
				"ALTER RESOURCE GOVERNOR DISABLE;",
			},
		},
		{
			name: "classifier_scripts_definition_then_binding",
			state: mssql.GovernorState{
				Enabled:                  true,
				ClassifierFunctionSchema: "dbo",
				ClassifierFunctionName:   "rg_classifier",
				ClassifierDefinition:     "CREATE FUNCTION dbo.rg_classifier() RETURNS sysname AS BEGIN RETURN 'reporting_high' END",
			},
			expectedStatements: []string{
				"CREATE FUNCTION dbo.rg_classifier() RETURNS sysname AS BEGIN RETURN 'reporting_high' END",
				"ALTER RESOURCE GOVERNOR WITH (CLASSIFIER_FUNCTION = [dbo].[rg_classifier]);",
			},
		},
		{
			name: "outstanding_io_limit_scripted_when_set",
			state: mssql.GovernorState{
				Enabled:                   true,
				MaxOutstandingIOPerVolume: 128,
			},
			expectedStatements: []string{
				"ALTER RESOURCE GOVERNOR WITH (MAX_OUTSTANDING_IO_PER_VOLUME = 128);",
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			require.Equal(subtestInstance, testCase.expectedStatements, mssql.ScriptGovernorState(testCase.state))
		})
	}
}

func TestServerDescriptorSupportsResourceGovernor(testInstance *testing.T) {
	testCases := []struct {
		name            string
		edition         string
		expectedSupport bool
	}{
		{name: "enterprise_supported", edition: "Enterprise Edition: Core-based Licensing (64-bit)", expectedSupport: true},
		{name: "developer_supported", edition: "Developer Edition (64-bit)", expectedSupport: true},
		{name: "evaluation_supported", edition: "Enterprise Evaluation Edition (64-bit)", expectedSupport: true},
		{name: "standard_unsupported", edition: "Standard Edition (64-bit)", expectedSupport: false},
		{name: "express_unsupported", edition: "Express Edition", expectedSupport: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			descriptor := mssql.ServerDescriptor{Edition: testCase.edition}
			require.Equal(subtestInstance, testCase.expectedSupport, descriptor.SupportsResourceGovernor())
		})
	}
}
