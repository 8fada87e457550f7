package governor_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/rgcopy/internal/governor"
	"github.com/temirov/rgcopy/internal/mssql"
)

type recordingConnector struct {
	connectedDetails []mssql.ConnectionDetails
	gateways         []governor.ServerGateway
	connectError     error
}

func (connector *recordingConnector) Connect(_ context.Context, details mssql.ConnectionDetails) (governor.ServerGateway, error) {
	if connector.connectError != nil {
		return nil, connector.connectError
	}
	connector.connectedDetails = append(connector.connectedDetails, details)
	gateway := connector.gateways[len(connector.connectedDetails)-1]
	return gateway, nil
}

type recordingExecutor struct {
	capturedOptions governor.MigrationOptions
	summary         governor.MigrationSummary
	executionError  error
}

func (executor *recordingExecutor) Execute(_ context.Context, options governor.MigrationOptions) (governor.MigrationSummary, error) {
	executor.capturedOptions = options
	return executor.summary, executor.executionError
}

func newCommandFixtures() (*recordingConnector, *recordingExecutor, *governor.CommandBuilder) {
	connector := &recordingConnector{
		gateways: []governor.ServerGateway{newSourceGateway(), newDestinationGateway()},
	}
	executor := &recordingExecutor{}
	builder := &governor.CommandBuilder{
		Connector: connector,
		ServiceProvider: func(governor.ServiceDependencies) (governor.MigrationExecutor, error) {
			return executor, nil
		},
	}
	return connector, executor, builder
}

func TestCopyCommandForwardsFlagValues(testInstance *testing.T) {
	connector, executor, builder := newCommandFixtures()

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetArgs([]string{
		"--source", testSourceServerNameConstant,
		"--destination", testDestinationServerNameConstant,
		"--source-user", "migrator",
		"--source-password", "secret",
		"--pool", testReportingPoolNameConstant,
		"--exclude-pool", testBatchPoolNameConstant,
		"--force",
		"--dry-run=no",
	})
	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})

	require.NoError(testInstance, command.Execute())

	require.Len(testInstance, connector.connectedDetails, 2)
	require.Equal(testInstance, testSourceServerNameConstant, connector.connectedDetails[0].Server)
	require.Equal(testInstance, "migrator", connector.connectedDetails[0].User)
	require.Equal(testInstance, "secret", connector.connectedDetails[0].Password)
	require.Equal(testInstance, testDestinationServerNameConstant, connector.connectedDetails[1].Server)

	require.Equal(testInstance, []string{testReportingPoolNameConstant}, executor.capturedOptions.IncludePools)
	require.Equal(testInstance, []string{testBatchPoolNameConstant}, executor.capturedOptions.ExcludePools)
	require.Equal(testInstance, []string{"internal", "default"}, executor.capturedOptions.ReservedPools)
	require.True(testInstance, executor.capturedOptions.Force)
	require.False(testInstance, executor.capturedOptions.DryRun)
}

func TestCopyCommandAppliesConfigurationWhenFlagsAbsent(testInstance *testing.T) {
	connector, executor, builder := newCommandFixtures()
	builder.ConfigurationProvider = func() governor.CommandConfiguration {
		return governor.CommandConfiguration{
			Source:        testSourceServerNameConstant,
			Destination:   testDestinationServerNameConstant,
			IncludePools:  []string{testBatchPoolNameConstant},
			ReservedPools: []string{"internal", "default"},
			DryRun:        true,
		}
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetArgs([]string{})
	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})

	require.NoError(testInstance, command.Execute())

	require.Len(testInstance, connector.connectedDetails, 2)
	require.Equal(testInstance, []string{testBatchPoolNameConstant}, executor.capturedOptions.IncludePools)
	require.True(testInstance, executor.capturedOptions.DryRun)
}

func TestCopyCommandRendersDryRunPlan(testInstance *testing.T) {
	_, executor, builder := newCommandFixtures()
	executor.summary = governor.MigrationSummary{
		Plan: governor.MigrationPlan{
			SourceServer:      testSourceServerNameConstant,
			DestinationServer: testDestinationServerNameConstant,
			DryRun:            true,
			Actions: []governor.PlannedAction{
				{Kind: governor.PlannedActionCreateResourcePool, Target: testReportingPoolNameConstant},
			},
		},
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetArgs([]string{
		"--source", testSourceServerNameConstant,
		"--destination", testDestinationServerNameConstant,
		"--dry-run",
	})
	command.SetOut(outputBuffer)
	command.SetErr(&bytes.Buffer{})

	require.NoError(testInstance, command.Execute())

	renderedPlan := outputBuffer.String()
	require.Contains(testInstance, renderedPlan, "source_server: "+testSourceServerNameConstant)
	require.Contains(testInstance, renderedPlan, "kind: create_resource_pool")
	require.Contains(testInstance, renderedPlan, "target: "+testReportingPoolNameConstant)
}

func TestCopyCommandRequiresServerIdentifiers(testInstance *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
	}{
		{name: "missing_source", arguments: []string{"--destination", testDestinationServerNameConstant}},
		{name: "missing_destination", arguments: []string{"--source", testSourceServerNameConstant}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			_, _, builder := newCommandFixtures()

			command, buildError := builder.Build()
			require.NoError(subtestInstance, buildError)

			command.SetArgs(testCase.arguments)
			command.SetOut(&bytes.Buffer{})
			command.SetErr(&bytes.Buffer{})

			require.Error(subtestInstance, command.Execute())
		})
	}
}

func TestListCommandRendersSnapshot(testInstance *testing.T) {
	sourceGateway := newSourceGateway()
	sourceGateway.state = mssql.GovernorState{
		Enabled:                  true,
		ClassifierFunctionSchema: "dbo",
		ClassifierFunctionName:   "rg_classifier",
	}
	connector := &recordingConnector{gateways: []governor.ServerGateway{sourceGateway}}
	builder := &governor.ListCommandBuilder{Connector: connector}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetArgs([]string{"--server", testSourceServerNameConstant})
	command.SetOut(outputBuffer)
	command.SetErr(&bytes.Buffer{})

	require.NoError(testInstance, command.Execute())

	renderedSnapshot := outputBuffer.String()
	require.Contains(testInstance, renderedSnapshot, "server: "+testSourceServerNameConstant)
	require.Contains(testInstance, renderedSnapshot, "enabled: true")
	require.Contains(testInstance, renderedSnapshot, "classifier_function: dbo.rg_classifier")
	require.Contains(testInstance, renderedSnapshot, "name: "+testReportingPoolNameConstant)
	require.Contains(testInstance, renderedSnapshot, "name: "+testReportingGroupNameConstant)
}

func TestListCommandLogsSnapshotSummary(testInstance *testing.T) {
	observedCore, observedLogs := observer.New(zapcore.InfoLevel)
	connector := &recordingConnector{gateways: []governor.ServerGateway{newSourceGateway()}}
	builder := &governor.ListCommandBuilder{
		Connector: connector,
		LoggerProvider: func() *zap.Logger {
			return zap.New(observedCore)
		},
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetArgs([]string{"--server", testSourceServerNameConstant})
	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})

	require.NoError(testInstance, command.Execute())

	loggedEntries := observedLogs.FilterMessage("Resource Governor state rendered").All()
	require.Len(testInstance, loggedEntries, 1)

	loggedFields := loggedEntries[0].ContextMap()
	require.Equal(testInstance, testSourceServerNameConstant, loggedFields["server"])
	require.Equal(testInstance, int64(4), loggedFields["pool_count"])
}

func TestListCommandRequiresServer(testInstance *testing.T) {
	builder := &governor.ListCommandBuilder{Connector: &recordingConnector{gateways: []governor.ServerGateway{newSourceGateway()}}}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetArgs([]string{})
	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})

	require.Error(testInstance, command.Execute())
}
