package governor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/rgcopy/internal/mssql"
)

const (
	minimumSupportedMajorVersionConstant = 10

	sourceGatewayMissingMessageConstant      = "source server gateway not configured"
	destinationGatewayMissingMessageConstant = "destination server gateway not configured"
	versionGateErrorTemplateConstant         = "server %s reports major version %d below supported minimum %d"
	settingsScriptErrorTemplateConstant      = "unable to script governor settings: %w"
	settingsApplyErrorTemplateConstant       = "unable to apply governor settings: %w"
	poolEnumerationErrorTemplateConstant     = "unable to enumerate source resource pools: %w"
	conflictProbeErrorTemplateConstant       = "unable to probe destination for pool %s: %w"
	groupDropErrorTemplateConstant           = "unable to drop workload group %s: %w"
	poolDropErrorTemplateConstant            = "unable to drop resource pool %s: %w"
	poolCreateErrorTemplateConstant          = "unable to create resource pool %s: %w"
	groupEnumerationErrorTemplateConstant    = "unable to enumerate workload groups for pool %s: %w"
	groupCreateErrorTemplateConstant         = "unable to create workload group %s: %w"
	reconfigureErrorTemplateConstant         = "unable to reconfigure destination governor: %w"

	editionLimitedWarningMessageConstant    = "Destination edition does not enforce Resource Governor limits; metadata is copied but stays inactive"
	settingsCopiedMessageConstant           = "Governor settings replayed on destination"
	settingsFailureWarningMessageConstant   = "Governor settings copy failed"
	poolConflictSkipWarningMessageConstant  = "Destination pool already exists; skipping (use force to replace)"
	poolCopyStartedMessageConstant          = "Copying resource pool"
	groupCopyStartedMessageConstant         = "Copying workload group"
	poolReplacedMessageConstant             = "Replaced conflicting destination pool"
	poolFailureWarningMessageConstant       = "Resource pool migration failed"
	reconfigureSkippedWarningMessageConstant = "Reconfigure skipped because the destination edition lacks Resource Governor support"
	reconfigureIssuedMessageConstant        = "Reconfigure issued on destination"
	dryRunActionMessageConstant             = "Dry run: action recorded but not executed"

	logFieldSourceServerConstant      = "source_server"
	logFieldDestinationServerConstant = "destination_server"
	logFieldPoolNameConstant          = "pool"
	logFieldGroupNameConstant         = "workload_group"
	logFieldActionKindConstant        = "action"
	logFieldActionTargetConstant      = "target"
)

var (
	errSourceGatewayMissing      = errors.New(sourceGatewayMissingMessageConstant)
	errDestinationGatewayMissing = errors.New(destinationGatewayMissingMessageConstant)
)

// ServerGateway abstracts the catalog operations the migration needs from one server session.
type ServerGateway interface {
	DescribeServer(executionContext context.Context) (mssql.ServerDescriptor, error)
	FetchGovernorState(executionContext context.Context) (mssql.GovernorState, error)
	ListResourcePools(executionContext context.Context) ([]mssql.ResourcePoolDefinition, error)
	ResourcePoolExists(executionContext context.Context, poolName string) (bool, error)
	ListWorkloadGroups(executionContext context.Context, poolName string) ([]mssql.WorkloadGroupDefinition, error)
	ExecuteBatch(executionContext context.Context, statement string) error
	DropWorkloadGroup(executionContext context.Context, groupName string) error
	DropResourcePool(executionContext context.Context, poolName string) error
	Reconfigure(executionContext context.Context) error
}

// ServiceDependencies describes required collaborators for migration.
type ServiceDependencies struct {
	Logger      *zap.Logger
	Source      ServerGateway
	Destination ServerGateway
}

// MigrationOptions configures one copy workflow run.
type MigrationOptions struct {
	IncludePools  []string
	ExcludePools  []string
	ReservedPools []string
	Force         bool
	DryRun        bool
}

// PoolMigrationStatus enumerates per-pool outcomes.
type PoolMigrationStatus string

// Pool migration outcome states.
const (
	PoolStatusCopied   PoolMigrationStatus = PoolMigrationStatus("copied")
	PoolStatusReplaced PoolMigrationStatus = PoolMigrationStatus("replaced")
	PoolStatusSkipped  PoolMigrationStatus = PoolMigrationStatus("skipped")
	PoolStatusFailed   PoolMigrationStatus = PoolMigrationStatus("failed")
)

// PoolOutcome records the observable result for one resource pool.
type PoolOutcome struct {
	PoolName     string
	Status       PoolMigrationStatus
	CopiedGroups []string
	Failures     []string
}

// MigrationSummary captures the observable outcomes of one run.
type MigrationSummary struct {
	SourceServer      string
	DestinationServer string
	SettingsCopied    bool
	PoolOutcomes      []PoolOutcome
	Reconfigured      bool
	Plan              MigrationPlan
}

// Service orchestrates the Resource Governor migration workflow.
type Service struct {
	logger      *zap.Logger
	source      ServerGateway
	destination ServerGateway
}

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Source == nil {
		return nil, errSourceGatewayMissing
	}
	if dependencies.Destination == nil {
		return nil, errDestinationGatewayMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	service := &Service{
		logger:      logger,
		source:      dependencies.Source,
		destination: dependencies.Destination,
	}

	return service, nil
}

// Execute performs the migration workflow.
//
// Version gate failures abort before any mutation. Every later failure is
// caught, logged, recorded in the summary, and accumulated into the returned
// joined error so sibling pools still run.
func (service *Service) Execute(executionContext context.Context, options MigrationOptions) (MigrationSummary, error) {
	sourceDescriptor, sourceDescribeError := service.source.DescribeServer(executionContext)
	if sourceDescribeError != nil {
		return MigrationSummary{}, sourceDescribeError
	}

	destinationDescriptor, destinationDescribeError := service.destination.DescribeServer(executionContext)
	if destinationDescribeError != nil {
		return MigrationSummary{}, destinationDescribeError
	}

	if gateError := service.checkVersionGate(sourceDescriptor, destinationDescriptor); gateError != nil {
		return MigrationSummary{}, gateError
	}

	destinationEditionSupported := destinationDescriptor.SupportsResourceGovernor()
	if !destinationEditionSupported {
		service.logger.Warn(
			editionLimitedWarningMessageConstant,
			zap.String(logFieldDestinationServerConstant, destinationDescriptor.Name),
		)
	}

	summary := MigrationSummary{
		SourceServer:      sourceDescriptor.Name,
		DestinationServer: destinationDescriptor.Name,
		Plan: MigrationPlan{
			SourceServer:      sourceDescriptor.Name,
			DestinationServer: destinationDescriptor.Name,
			DryRun:            options.DryRun,
		},
	}

	var migrationErrors []error

	settingsError := service.copyGovernorSettings(executionContext, options, sourceDescriptor, destinationDescriptor, &summary)
	if settingsError != nil {
		service.logger.Warn(settingsFailureWarningMessageConstant, zap.Error(settingsError))
		migrationErrors = append(migrationErrors, settingsError)
	} else {
		summary.SettingsCopied = true
	}

	sourcePools, poolEnumerationError := service.source.ListResourcePools(executionContext)
	if poolEnumerationError != nil {
		migrationErrors = append(migrationErrors, fmt.Errorf(poolEnumerationErrorTemplateConstant, poolEnumerationError))
		return summary, errors.Join(migrationErrors...)
	}

	for _, poolDefinition := range selectPools(sourcePools, options) {
		poolOutcome := service.migratePool(executionContext, options, sourceDescriptor, destinationDescriptor, poolDefinition, &summary.Plan)
		summary.PoolOutcomes = append(summary.PoolOutcomes, poolOutcome)
		for _, failureDescription := range poolOutcome.Failures {
			migrationErrors = append(migrationErrors, errors.New(failureDescription))
		}
	}

	reconfigured, reconfigureError := service.triggerReconfigure(executionContext, options, destinationDescriptor, destinationEditionSupported, &summary.Plan)
	if reconfigureError != nil {
		migrationErrors = append(migrationErrors, reconfigureError)
	}
	summary.Reconfigured = reconfigured

	return summary, errors.Join(migrationErrors...)
}

func (service *Service) checkVersionGate(sourceDescriptor mssql.ServerDescriptor, destinationDescriptor mssql.ServerDescriptor) error {
	for _, descriptor := range []mssql.ServerDescriptor{sourceDescriptor, destinationDescriptor} {
		if descriptor.MajorVersion < minimumSupportedMajorVersionConstant {
			return fmt.Errorf(
				versionGateErrorTemplateConstant,
				descriptor.Name,
				descriptor.MajorVersion,
				minimumSupportedMajorVersionConstant,
			)
		}
	}
	return nil
}

func (service *Service) copyGovernorSettings(
	executionContext context.Context,
	options MigrationOptions,
	sourceDescriptor mssql.ServerDescriptor,
	destinationDescriptor mssql.ServerDescriptor,
	summary *MigrationSummary,
) error {
	governorState, stateError := service.source.FetchGovernorState(executionContext)
	if stateError != nil {
		return fmt.Errorf(settingsScriptErrorTemplateConstant, stateError)
	}

	for _, scriptedStatement := range mssql.ScriptGovernorState(governorState) {
		substitutedStatement := SubstituteServerName(scriptedStatement, sourceDescriptor.Name, destinationDescriptor.Name)
		applyError := service.applyStatement(executionContext, options, PlannedAction{
			Kind:      PlannedActionApplySettings,
			Target:    destinationDescriptor.Name,
			Statement: substitutedStatement,
		}, &summary.Plan)
		if applyError != nil {
			return fmt.Errorf(settingsApplyErrorTemplateConstant, applyError)
		}
	}

	service.logger.Info(
		settingsCopiedMessageConstant,
		zap.String(logFieldSourceServerConstant, sourceDescriptor.Name),
		zap.String(logFieldDestinationServerConstant, destinationDescriptor.Name),
	)

	return nil
}

func (service *Service) migratePool(
	executionContext context.Context,
	options MigrationOptions,
	sourceDescriptor mssql.ServerDescriptor,
	destinationDescriptor mssql.ServerDescriptor,
	poolDefinition mssql.ResourcePoolDefinition,
	plan *MigrationPlan,
) PoolOutcome {
	outcome := PoolOutcome{PoolName: poolDefinition.Name, Status: PoolStatusCopied}

	service.logger.Info(
		poolCopyStartedMessageConstant,
		zap.String(logFieldPoolNameConstant, poolDefinition.Name),
		zap.String(logFieldDestinationServerConstant, destinationDescriptor.Name),
	)

	conflictingPoolExists, probeError := service.destination.ResourcePoolExists(executionContext, poolDefinition.Name)
	if probeError != nil {
		outcome.Status = PoolStatusFailed
		outcome.Failures = append(outcome.Failures, fmt.Errorf(conflictProbeErrorTemplateConstant, poolDefinition.Name, probeError).Error())
		return outcome
	}

	if conflictingPoolExists {
		if !options.Force {
			service.logger.Warn(
				poolConflictSkipWarningMessageConstant,
				zap.String(logFieldPoolNameConstant, poolDefinition.Name),
			)
			outcome.Status = PoolStatusSkipped
			return outcome
		}

		if dropError := service.dropConflictingPool(executionContext, options, poolDefinition.Name, plan); dropError != nil {
			service.logger.Warn(
				poolFailureWarningMessageConstant,
				zap.String(logFieldPoolNameConstant, poolDefinition.Name),
				zap.Error(dropError),
			)
			outcome.Status = PoolStatusFailed
			outcome.Failures = append(outcome.Failures, dropError.Error())
			return outcome
		}

		service.logger.Info(poolReplacedMessageConstant, zap.String(logFieldPoolNameConstant, poolDefinition.Name))
		outcome.Status = PoolStatusReplaced
	}

	poolStatement := SubstituteServerName(mssql.ScriptResourcePool(poolDefinition), sourceDescriptor.Name, destinationDescriptor.Name)
	createPoolError := service.applyStatement(executionContext, options, PlannedAction{
		Kind:      PlannedActionCreateResourcePool,
		Target:    poolDefinition.Name,
		Statement: poolStatement,
	}, plan)
	if createPoolError != nil {
		service.logger.Warn(
			poolFailureWarningMessageConstant,
			zap.String(logFieldPoolNameConstant, poolDefinition.Name),
			zap.Error(createPoolError),
		)
		outcome.Status = PoolStatusFailed
		outcome.Failures = append(outcome.Failures, fmt.Errorf(poolCreateErrorTemplateConstant, poolDefinition.Name, createPoolError).Error())
		return outcome
	}

	workloadGroups, groupEnumerationError := service.source.ListWorkloadGroups(executionContext, poolDefinition.Name)
	if groupEnumerationError != nil {
		outcome.Status = PoolStatusFailed
		outcome.Failures = append(outcome.Failures, fmt.Errorf(groupEnumerationErrorTemplateConstant, poolDefinition.Name, groupEnumerationError).Error())
		return outcome
	}

	for _, groupDefinition := range workloadGroups {
		service.logger.Info(
			groupCopyStartedMessageConstant,
			zap.String(logFieldPoolNameConstant, poolDefinition.Name),
			zap.String(logFieldGroupNameConstant, groupDefinition.Name),
		)

		groupStatement := SubstituteServerName(mssql.ScriptWorkloadGroup(groupDefinition), sourceDescriptor.Name, destinationDescriptor.Name)
		createGroupError := service.applyStatement(executionContext, options, PlannedAction{
			Kind:      PlannedActionCreateWorkloadGroup,
			Target:    groupDefinition.Name,
			Statement: groupStatement,
		}, plan)
		if createGroupError != nil {
			service.logger.Warn(
				poolFailureWarningMessageConstant,
				zap.String(logFieldPoolNameConstant, poolDefinition.Name),
				zap.String(logFieldGroupNameConstant, groupDefinition.Name),
				zap.Error(createGroupError),
			)
			outcome.Status = PoolStatusFailed
			outcome.Failures = append(outcome.Failures, fmt.Errorf(groupCreateErrorTemplateConstant, groupDefinition.Name, createGroupError).Error())
			continue
		}

		outcome.CopiedGroups = append(outcome.CopiedGroups, groupDefinition.Name)
	}

	return outcome
}

func (service *Service) dropConflictingPool(
	executionContext context.Context,
	options MigrationOptions,
	poolName string,
	plan *MigrationPlan,
) error {
	destinationGroups, groupEnumerationError := service.destination.ListWorkloadGroups(executionContext, poolName)
	if groupEnumerationError != nil {
		return fmt.Errorf(groupEnumerationErrorTemplateConstant, poolName, groupEnumerationError)
	}

	for _, groupDefinition := range destinationGroups {
		if nameInList(groupDefinition.Name, options.ReservedPools) {
			continue
		}

		plan.Actions = append(plan.Actions, PlannedAction{Kind: PlannedActionDropWorkloadGroup, Target: groupDefinition.Name})
		if options.DryRun {
			service.logDryRunAction(PlannedActionDropWorkloadGroup, groupDefinition.Name)
			continue
		}
		if dropGroupError := service.destination.DropWorkloadGroup(executionContext, groupDefinition.Name); dropGroupError != nil {
			return fmt.Errorf(groupDropErrorTemplateConstant, groupDefinition.Name, dropGroupError)
		}
	}

	plan.Actions = append(plan.Actions, PlannedAction{Kind: PlannedActionDropResourcePool, Target: poolName})
	if options.DryRun {
		service.logDryRunAction(PlannedActionDropResourcePool, poolName)
		return nil
	}
	if dropPoolError := service.destination.DropResourcePool(executionContext, poolName); dropPoolError != nil {
		return fmt.Errorf(poolDropErrorTemplateConstant, poolName, dropPoolError)
	}

	return nil
}

func (service *Service) triggerReconfigure(
	executionContext context.Context,
	options MigrationOptions,
	destinationDescriptor mssql.ServerDescriptor,
	editionSupported bool,
	plan *MigrationPlan,
) (bool, error) {
	if !editionSupported {
		service.logger.Warn(
			reconfigureSkippedWarningMessageConstant,
			zap.String(logFieldDestinationServerConstant, destinationDescriptor.Name),
		)
		return false, nil
	}

	plan.Actions = append(plan.Actions, PlannedAction{Kind: PlannedActionReconfigure, Target: destinationDescriptor.Name})
	if options.DryRun {
		service.logDryRunAction(PlannedActionReconfigure, destinationDescriptor.Name)
		return false, nil
	}

	if reconfigureError := service.destination.Reconfigure(executionContext); reconfigureError != nil {
		return false, fmt.Errorf(reconfigureErrorTemplateConstant, reconfigureError)
	}

	service.logger.Info(
		reconfigureIssuedMessageConstant,
		zap.String(logFieldDestinationServerConstant, destinationDescriptor.Name),
	)

	return true, nil
}

func (service *Service) applyStatement(
	executionContext context.Context,
	options MigrationOptions,
	action PlannedAction,
	plan *MigrationPlan,
) error {
	plan.Actions = append(plan.Actions, action)

	if options.DryRun {
		service.logDryRunAction(action.Kind, action.Target)
		return nil
	}

	return service.destination.ExecuteBatch(executionContext, action.Statement)
}

func (service *Service) logDryRunAction(actionKind PlannedActionKind, actionTarget string) {
	service.logger.Info(
		dryRunActionMessageConstant,
		zap.String(logFieldActionKindConstant, string(actionKind)),
		zap.String(logFieldActionTargetConstant, actionTarget),
	)
}

func selectPools(sourcePools []mssql.ResourcePoolDefinition, options MigrationOptions) []mssql.ResourcePoolDefinition {
	var selectedPools []mssql.ResourcePoolDefinition

	for _, poolDefinition := range sourcePools {
		if len(options.IncludePools) > 0 {
			if !nameInList(poolDefinition.Name, options.IncludePools) {
				continue
			}
		} else if nameInList(poolDefinition.Name, options.ReservedPools) {
			continue
		}

		if nameInList(poolDefinition.Name, options.ExcludePools) {
			continue
		}

		selectedPools = append(selectedPools, poolDefinition)
	}

	return selectedPools
}

func nameInList(candidateName string, names []string) bool {
	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), candidateName) {
			return true
		}
	}
	return false
}
