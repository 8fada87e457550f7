package mssql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testCapColumnNameFragmentConstant     = "cap_cpu_percent"
	testIOPSColumnNameFragmentConstant    = "iops_per_volume"
	testOutstandingIOColumnNameConstant   = "max_outstanding_io_per_volume"
)

func TestResourcePoolsQueryForVersion(testInstance *testing.T) {
	testCases := []struct {
		name               string
		majorVersion       int
		expectCapColumn    bool
		expectIOPSColumns  bool
	}{
		{name: "sql_server_2008", majorVersion: 10, expectCapColumn: false, expectIOPSColumns: false},
		{name: "sql_server_2012", majorVersion: 11, expectCapColumn: true, expectIOPSColumns: false},
		{name: "sql_server_2014", majorVersion: 12, expectCapColumn: true, expectIOPSColumns: true},
		{name: "sql_server_2019", majorVersion: 15, expectCapColumn: true, expectIOPSColumns: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			queryText, includeCapColumn, includeIOPSColumns := resourcePoolsQueryForVersion(testCase.majorVersion)
			require.Equal(subtestInstance, testCase.expectCapColumn, includeCapColumn)
			require.Equal(subtestInstance, testCase.expectIOPSColumns, includeIOPSColumns)
			require.Equal(subtestInstance, testCase.expectCapColumn, strings.Contains(queryText, testCapColumnNameFragmentConstant))
			require.Equal(subtestInstance, testCase.expectIOPSColumns, strings.Contains(queryText, testIOPSColumnNameFragmentConstant))
		})
	}
}

func TestGovernorStateQueryForVersion(testInstance *testing.T) {
	legacyQueryText, legacyColumnIncluded := governorStateQueryForVersion(capCPUColumnMinimumMajorVersionConstant)
	require.False(testInstance, legacyColumnIncluded)
	require.NotContains(testInstance, legacyQueryText, testOutstandingIOColumnNameConstant)

	modernQueryText, modernColumnIncluded := governorStateQueryForVersion(ioResourceColumnsMinimumMajorVersionConstant)
	require.True(testInstance, modernColumnIncluded)
	require.Contains(testInstance, modernQueryText, testOutstandingIOColumnNameConstant)
}
