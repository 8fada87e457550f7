package governor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/rgcopy/internal/mssql"
)

const (
	listCommandUseConstant              = "list"
	listCommandShortDescriptionConstant = "Show a server's Resource Governor state"
	listCommandLongDescriptionConstant  = "list connects to one server and prints its Resource Governor state as YAML: enabled flag, classifier function, and every resource pool with its workload groups."

	serverFlagNameConstant       = "server"
	serverFlagUsageConstant      = "Server to inspect (host, host\\instance, or host,port)"
	userFlagNameConstant         = "user"
	userFlagUsageConstant        = "SQL login (trusted connection when omitted)"
	passwordFlagNameConstant     = "password"
	passwordFlagUsageConstant    = "Password for the SQL login"
	serverRequiredMessage        = "server must be provided"
	listConnectErrorTemplate     = "unable to connect to server: %w"
	snapshotErrorTemplateConstant = "unable to read resource governor state: %w"
	snapshotRenderErrorTemplate  = "unable to render resource governor state: %w"
	classifierNameFormatConstant = "%s.%s"

	snapshotRenderedMessageConstant = "Resource Governor state rendered"
	logFieldServerConstant          = "server"
	logFieldPoolCountConstant       = "pool_count"
)

var errListServerRequired = errors.New(serverRequiredMessage)

// WorkloadGroupSnapshot describes one workload group in the list output.
type WorkloadGroupSnapshot struct {
	Name                         string `yaml:"name"`
	Importance                   string `yaml:"importance"`
	RequestMaxMemoryGrantPercent int    `yaml:"request_max_memory_grant_percent"`
	MaxDegreeOfParallelism       int    `yaml:"max_dop"`
	GroupMaxRequests             int    `yaml:"group_max_requests"`
}

// ResourcePoolSnapshot describes one resource pool in the list output.
type ResourcePoolSnapshot struct {
	Name             string                  `yaml:"name"`
	MinCPUPercent    int                     `yaml:"min_cpu_percent"`
	MaxCPUPercent    int                     `yaml:"max_cpu_percent"`
	CapCPUPercent    int                     `yaml:"cap_cpu_percent"`
	MinMemoryPercent int                     `yaml:"min_memory_percent"`
	MaxMemoryPercent int                     `yaml:"max_memory_percent"`
	WorkloadGroups   []WorkloadGroupSnapshot `yaml:"workload_groups"`
}

// GovernorSnapshot describes a server's Resource Governor state in the list output.
type GovernorSnapshot struct {
	Server             string                 `yaml:"server"`
	MajorVersion       int                    `yaml:"major_version"`
	Edition            string                 `yaml:"edition"`
	Enabled            bool                   `yaml:"enabled"`
	ClassifierFunction string                 `yaml:"classifier_function,omitempty"`
	Pools              []ResourcePoolSnapshot `yaml:"pools"`
}

// BuildGovernorSnapshot assembles the read-only state view over one gateway.
func BuildGovernorSnapshot(executionContext context.Context, gateway ServerGateway) (GovernorSnapshot, error) {
	descriptor, describeError := gateway.DescribeServer(executionContext)
	if describeError != nil {
		return GovernorSnapshot{}, describeError
	}

	governorState, stateError := gateway.FetchGovernorState(executionContext)
	if stateError != nil {
		return GovernorSnapshot{}, stateError
	}

	snapshot := GovernorSnapshot{
		Server:       descriptor.Name,
		MajorVersion: descriptor.MajorVersion,
		Edition:      descriptor.Edition,
		Enabled:      governorState.Enabled,
	}
	if governorState.HasClassifierFunction() {
		snapshot.ClassifierFunction = fmt.Sprintf(
			classifierNameFormatConstant,
			governorState.ClassifierFunctionSchema,
			governorState.ClassifierFunctionName,
		)
	}

	poolDefinitions, poolListError := gateway.ListResourcePools(executionContext)
	if poolListError != nil {
		return GovernorSnapshot{}, poolListError
	}

	for _, poolDefinition := range poolDefinitions {
		poolSnapshot := ResourcePoolSnapshot{
			Name:             poolDefinition.Name,
			MinCPUPercent:    poolDefinition.MinCPUPercent,
			MaxCPUPercent:    poolDefinition.MaxCPUPercent,
			CapCPUPercent:    poolDefinition.CapCPUPercent,
			MinMemoryPercent: poolDefinition.MinMemoryPercent,
			MaxMemoryPercent: poolDefinition.MaxMemoryPercent,
		}

		groupDefinitions, groupListError := gateway.ListWorkloadGroups(executionContext, poolDefinition.Name)
		if groupListError != nil {
			return GovernorSnapshot{}, groupListError
		}
		for _, groupDefinition := range groupDefinitions {
			poolSnapshot.WorkloadGroups = append(poolSnapshot.WorkloadGroups, WorkloadGroupSnapshot{
				Name:                         groupDefinition.Name,
				Importance:                   groupDefinition.Importance,
				RequestMaxMemoryGrantPercent: groupDefinition.RequestMaxMemoryGrantPercent,
				MaxDegreeOfParallelism:       groupDefinition.MaxDegreeOfParallelism,
				GroupMaxRequests:             groupDefinition.GroupMaxRequests,
			})
		}

		snapshot.Pools = append(snapshot.Pools, poolSnapshot)
	}

	return snapshot, nil
}

// ListCommandBuilder assembles the list Cobra command.
type ListCommandBuilder struct {
	LoggerProvider        LoggerProvider
	Connector             ServerConnector
	ConfigurationProvider func() ListCommandConfiguration
}

// Build constructs the list command.
func (builder *ListCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           listCommandUseConstant,
		Short:         listCommandShortDescriptionConstant,
		Long:          listCommandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runList,
	}

	command.Flags().String(serverFlagNameConstant, "", serverFlagUsageConstant)
	command.Flags().String(userFlagNameConstant, "", userFlagUsageConstant)
	command.Flags().String(passwordFlagNameConstant, "", passwordFlagUsageConstant)

	return command, nil
}

func (builder *ListCommandBuilder) runList(command *cobra.Command, arguments []string) error {
	details, detailsError := builder.parseConnectionDetails(command)
	if detailsError != nil {
		return detailsError
	}

	gateway, connectError := builder.resolveConnector().Connect(command.Context(), details)
	if connectError != nil {
		return fmt.Errorf(listConnectErrorTemplate, connectError)
	}
	defer closeGateway(gateway)

	snapshot, snapshotError := BuildGovernorSnapshot(command.Context(), gateway)
	if snapshotError != nil {
		return fmt.Errorf(snapshotErrorTemplateConstant, snapshotError)
	}

	renderedSnapshot, marshalError := yaml.Marshal(snapshot)
	if marshalError != nil {
		return fmt.Errorf(snapshotRenderErrorTemplate, marshalError)
	}

	fmt.Fprint(command.OutOrStdout(), string(renderedSnapshot))

	builder.resolveLogger().Info(
		snapshotRenderedMessageConstant,
		zap.String(logFieldServerConstant, snapshot.Server),
		zap.Int(logFieldPoolCountConstant, len(snapshot.Pools)),
	)

	return nil
}

func (builder *ListCommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if logger := builder.LoggerProvider(); logger != nil {
			return logger
		}
	}
	return zap.NewNop()
}

func (builder *ListCommandBuilder) parseConnectionDetails(command *cobra.Command) (mssql.ConnectionDetails, error) {
	configuration := ListCommandConfiguration{}
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider().Sanitize()
	}

	serverName := configuration.Server
	userName := configuration.User
	password := configuration.Password

	if command != nil {
		commandFlags := command.Flags()
		if commandFlags.Changed(serverFlagNameConstant) {
			serverName, _ = commandFlags.GetString(serverFlagNameConstant)
		}
		if commandFlags.Changed(userFlagNameConstant) {
			userName, _ = commandFlags.GetString(userFlagNameConstant)
		}
		if commandFlags.Changed(passwordFlagNameConstant) {
			password, _ = commandFlags.GetString(passwordFlagNameConstant)
		}
	}

	if len(strings.TrimSpace(serverName)) == 0 {
		return mssql.ConnectionDetails{}, errListServerRequired
	}

	return mssql.ConnectionDetails{
		Server:   strings.TrimSpace(serverName),
		User:     strings.TrimSpace(userName),
		Password: password,
	}, nil
}

func (builder *ListCommandBuilder) resolveConnector() ServerConnector {
	if builder.Connector != nil {
		return builder.Connector
	}
	return mssqlServerConnector{}
}
