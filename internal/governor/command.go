package governor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/temirov/rgcopy/internal/mssql"
	"github.com/temirov/rgcopy/internal/utils"
	"github.com/temirov/rgcopy/internal/utils/flags"
)

const (
	copyCommandUseConstant              = "copy"
	copyCommandShortDescriptionConstant = "Copy Resource Governor configuration between servers"
	copyCommandLongDescriptionConstant  = "copy scripts the source server's Resource Governor settings, resource pools, and workload groups, substitutes the destination server name, and replays the statements on the destination."

	sourceFlagNameConstant                = "source"
	sourceFlagUsageConstant               = "Source server (host, host\\instance, or host,port)"
	destinationFlagNameConstant           = "destination"
	destinationFlagUsageConstant          = "Destination server (host, host\\instance, or host,port)"
	sourceUserFlagNameConstant            = "source-user"
	sourceUserFlagUsageConstant           = "SQL login for the source server (trusted connection when omitted)"
	sourcePasswordFlagNameConstant        = "source-password"
	sourcePasswordFlagUsageConstant       = "Password for the source SQL login"
	destinationUserFlagNameConstant       = "destination-user"
	destinationUserFlagUsageConstant      = "SQL login for the destination server (trusted connection when omitted)"
	destinationPasswordFlagNameConstant   = "destination-password"
	destinationPasswordFlagUsageConstant  = "Password for the destination SQL login"
	includePoolFlagNameConstant           = "pool"
	includePoolFlagUsageConstant          = "Resource pool to copy (repeatable; all non-reserved pools when omitted)"
	excludePoolFlagNameConstant           = "exclude-pool"
	excludePoolFlagUsageConstant          = "Resource pool to skip (repeatable)"
	forceFlagNameConstant                 = "force"
	forceFlagUsageConstant                = "Drop and recreate conflicting destination pools"
	dryRunFlagNameConstant                = "dry-run"
	dryRunFlagUsageConstant               = "Describe mutating actions without executing them"

	sourceRequiredMessageConstant      = "source server must be provided"
	destinationRequiredMessageConstant = "destination server must be provided"

	sourceConnectErrorTemplateConstant      = "unable to connect to source server: %w"
	destinationConnectErrorTemplateConstant = "unable to connect to destination server: %w"
	copyExecutionErrorTemplateConstant      = "resource governor copy failed: %w"
	planRenderFailureTemplateConstant       = "unable to render dry-run plan: %w"

	copyCompletedMessageConstant = "Resource Governor copy completed"

	logFieldRunIdentifierConstant   = "run_id"
	logFieldSettingsCopiedConstant  = "settings_copied"
	logFieldPoolsCopiedConstant     = "pools_copied"
	logFieldPoolsReplacedConstant   = "pools_replaced"
	logFieldPoolsSkippedConstant    = "pools_skipped"
	logFieldPoolsFailedConstant     = "pools_failed"
	logFieldReconfiguredConstant    = "reconfigured"
)

var (
	errSourceRequired      = errors.New(sourceRequiredMessageConstant)
	errDestinationRequired = errors.New(destinationRequiredMessageConstant)
)

// MigrationExecutor abstracts the migration service for command-level tests.
type MigrationExecutor interface {
	Execute(executionContext context.Context, options MigrationOptions) (MigrationSummary, error)
}

// ServerConnector establishes a gateway session against one server endpoint.
type ServerConnector interface {
	Connect(executionContext context.Context, details mssql.ConnectionDetails) (ServerGateway, error)
}

// ServiceProvider constructs a migration executor from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (MigrationExecutor, error)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

type gatewayCloser interface {
	Close() error
}

type commandOptions struct {
	sourceDetails      mssql.ConnectionDetails
	destinationDetails mssql.ConnectionDetails
	migration          MigrationOptions
	dryRun             bool
	debugLogging       bool
}

// CommandBuilder assembles the copy Cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	Connector             ServerConnector
	ServiceProvider       ServiceProvider
	ConfigurationProvider func() CommandConfiguration

	forceFlagValue  bool
	dryRunFlagValue bool
}

// Build constructs the copy command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           copyCommandUseConstant,
		Short:         copyCommandShortDescriptionConstant,
		Long:          copyCommandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runCopy,
	}

	command.Flags().String(sourceFlagNameConstant, "", sourceFlagUsageConstant)
	command.Flags().String(destinationFlagNameConstant, "", destinationFlagUsageConstant)
	command.Flags().String(sourceUserFlagNameConstant, "", sourceUserFlagUsageConstant)
	command.Flags().String(sourcePasswordFlagNameConstant, "", sourcePasswordFlagUsageConstant)
	command.Flags().String(destinationUserFlagNameConstant, "", destinationUserFlagUsageConstant)
	command.Flags().String(destinationPasswordFlagNameConstant, "", destinationPasswordFlagUsageConstant)
	command.Flags().StringSlice(includePoolFlagNameConstant, nil, includePoolFlagUsageConstant)
	command.Flags().StringSlice(excludePoolFlagNameConstant, nil, excludePoolFlagUsageConstant)
	flags.AddToggleFlag(command.Flags(), &builder.forceFlagValue, forceFlagNameConstant, false, forceFlagUsageConstant)
	flags.AddToggleFlag(command.Flags(), &builder.dryRunFlagValue, dryRunFlagNameConstant, false, dryRunFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runCopy(command *cobra.Command, arguments []string) error {
	options, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger(command, options.debugLogging)

	sourceGateway, sourceConnectError := builder.resolveConnector().Connect(command.Context(), options.sourceDetails)
	if sourceConnectError != nil {
		return fmt.Errorf(sourceConnectErrorTemplateConstant, sourceConnectError)
	}
	defer closeGateway(sourceGateway)

	destinationGateway, destinationConnectError := builder.resolveConnector().Connect(command.Context(), options.destinationDetails)
	if destinationConnectError != nil {
		return fmt.Errorf(destinationConnectErrorTemplateConstant, destinationConnectError)
	}
	defer closeGateway(destinationGateway)

	service, serviceError := builder.resolveService(ServiceDependencies{
		Logger:      logger,
		Source:      sourceGateway,
		Destination: destinationGateway,
	})
	if serviceError != nil {
		return serviceError
	}

	summary, executionError := service.Execute(command.Context(), options.migration)

	builder.logSummary(logger, summary)

	if options.dryRun {
		renderedPlan, renderError := summary.Plan.Render()
		if renderError != nil {
			return fmt.Errorf(planRenderFailureTemplateConstant, renderError)
		}
		fmt.Fprint(command.OutOrStdout(), renderedPlan)
	}

	if executionError != nil {
		return fmt.Errorf(copyExecutionErrorTemplateConstant, executionError)
	}

	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (commandOptions, error) {
	configuration := builder.resolveConfiguration()

	sourceServer := configuration.Source
	destinationServer := configuration.Destination
	sourceUser := configuration.SourceUser
	sourcePassword := configuration.SourcePassword
	destinationUser := configuration.DestinationUser
	destinationPassword := configuration.DestinationPassword
	includePools := configuration.IncludePools
	excludePools := configuration.ExcludePools
	forceEnabled := configuration.Force
	dryRunEnabled := configuration.DryRun
	debugLogging := false

	if command != nil {
		commandFlags := command.Flags()
		if commandFlags.Changed(sourceFlagNameConstant) {
			sourceServer, _ = commandFlags.GetString(sourceFlagNameConstant)
		}
		if commandFlags.Changed(destinationFlagNameConstant) {
			destinationServer, _ = commandFlags.GetString(destinationFlagNameConstant)
		}
		if commandFlags.Changed(sourceUserFlagNameConstant) {
			sourceUser, _ = commandFlags.GetString(sourceUserFlagNameConstant)
		}
		if commandFlags.Changed(sourcePasswordFlagNameConstant) {
			sourcePassword, _ = commandFlags.GetString(sourcePasswordFlagNameConstant)
		}
		if commandFlags.Changed(destinationUserFlagNameConstant) {
			destinationUser, _ = commandFlags.GetString(destinationUserFlagNameConstant)
		}
		if commandFlags.Changed(destinationPasswordFlagNameConstant) {
			destinationPassword, _ = commandFlags.GetString(destinationPasswordFlagNameConstant)
		}
		if commandFlags.Changed(includePoolFlagNameConstant) {
			includePools, _ = commandFlags.GetStringSlice(includePoolFlagNameConstant)
		}
		if commandFlags.Changed(excludePoolFlagNameConstant) {
			excludePools, _ = commandFlags.GetStringSlice(excludePoolFlagNameConstant)
		}
		if commandFlags.Changed(forceFlagNameConstant) {
			forceEnabled = builder.forceFlagValue
		}
		if commandFlags.Changed(dryRunFlagNameConstant) {
			dryRunEnabled = builder.dryRunFlagValue
		}

		contextAccessor := utils.NewCommandContextAccessor()
		if logLevel, available := contextAccessor.LogLevel(command.Context()); available {
			if strings.EqualFold(logLevel, string(utils.LogLevelDebug)) {
				debugLogging = true
			}
		}
	}

	if len(strings.TrimSpace(sourceServer)) == 0 {
		return commandOptions{}, errSourceRequired
	}
	if len(strings.TrimSpace(destinationServer)) == 0 {
		return commandOptions{}, errDestinationRequired
	}

	options := commandOptions{
		sourceDetails: mssql.ConnectionDetails{
			Server:   strings.TrimSpace(sourceServer),
			User:     strings.TrimSpace(sourceUser),
			Password: sourcePassword,
		},
		destinationDetails: mssql.ConnectionDetails{
			Server:   strings.TrimSpace(destinationServer),
			User:     strings.TrimSpace(destinationUser),
			Password: destinationPassword,
		},
		migration: MigrationOptions{
			IncludePools:  includePools,
			ExcludePools:  excludePools,
			ReservedPools: configuration.ReservedPools,
			Force:         forceEnabled,
			DryRun:        dryRunEnabled,
		},
		dryRun:       dryRunEnabled,
		debugLogging: debugLogging,
	}

	return options, nil
}

func (builder *CommandBuilder) resolveLogger(command *cobra.Command, enableDebug bool) *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if enableDebug {
		logger = logger.WithOptions(zap.IncreaseLevel(zapcore.DebugLevel))
	}

	if command != nil {
		contextAccessor := utils.NewCommandContextAccessor()
		if runIdentifier, available := contextAccessor.RunIdentifier(command.Context()); available {
			logger = logger.With(zap.String(logFieldRunIdentifierConstant, runIdentifier))
		}
	}

	return logger
}

func (builder *CommandBuilder) resolveConnector() ServerConnector {
	if builder.Connector != nil {
		return builder.Connector
	}
	return mssqlServerConnector{}
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (MigrationExecutor, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}

	provided := builder.ConfigurationProvider()
	return provided.Sanitize()
}

func (builder *CommandBuilder) logSummary(logger *zap.Logger, summary MigrationSummary) {
	if logger == nil {
		return
	}

	statusCounts := map[PoolMigrationStatus]int{}
	for _, poolOutcome := range summary.PoolOutcomes {
		statusCounts[poolOutcome.Status]++
	}

	logger.Info(
		copyCompletedMessageConstant,
		zap.String(logFieldSourceServerConstant, summary.SourceServer),
		zap.String(logFieldDestinationServerConstant, summary.DestinationServer),
		zap.Bool(logFieldSettingsCopiedConstant, summary.SettingsCopied),
		zap.Int(logFieldPoolsCopiedConstant, statusCounts[PoolStatusCopied]),
		zap.Int(logFieldPoolsReplacedConstant, statusCounts[PoolStatusReplaced]),
		zap.Int(logFieldPoolsSkippedConstant, statusCounts[PoolStatusSkipped]),
		zap.Int(logFieldPoolsFailedConstant, statusCounts[PoolStatusFailed]),
		zap.Bool(logFieldReconfiguredConstant, summary.Reconfigured),
	)
}

type mssqlServerConnector struct{}

func (mssqlServerConnector) Connect(executionContext context.Context, details mssql.ConnectionDetails) (ServerGateway, error) {
	return mssql.Connect(executionContext, details)
}

func closeGateway(gateway ServerGateway) {
	if closer, isCloser := gateway.(gatewayCloser); isCloser {
		_ = closer.Close()
	}
}
