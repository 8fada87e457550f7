package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

const (
	describeServerOperationNameConstant    = OperationName("DescribeServer")
	fetchGovernorStateOperationName        = OperationName("FetchGovernorState")
	listResourcePoolsOperationNameConstant = OperationName("ListResourcePools")
	resourcePoolExistsOperationName        = OperationName("ResourcePoolExists")
	listWorkloadGroupsOperationName        = OperationName("ListWorkloadGroups")
	executeBatchOperationNameConstant      = OperationName("ExecuteBatch")
	dropWorkloadGroupOperationNameConstant = OperationName("DropWorkloadGroup")
	dropResourcePoolOperationNameConstant  = OperationName("DropResourcePool")
	reconfigureOperationNameConstant       = OperationName("Reconfigure")

	operationErrorTemplateConstant  = "%s operation failed: %v"
	productVersionSeparatorConstant = "."
	poolNameParameterConstant       = "poolName"

	// Catalog column vintages: cap_cpu_percent ships with major version 11
	// (SQL Server 2012), the IOPS and outstanding-IO columns with major
	// version 12 (SQL Server 2014).
	capCPUColumnMinimumMajorVersionConstant      = 11
	ioResourceColumnsMinimumMajorVersionConstant = 12

	dropPoolStatementTemplateConstant  = "DROP RESOURCE POOL %s;"
	dropGroupStatementTemplateConstant = "DROP WORKLOAD GROUP %s;"
	reconfigureStatementConstant       = "ALTER RESOURCE GOVERNOR RECONFIGURE;"

	describeServerQueryConstant = `SELECT CAST(SERVERPROPERTY('ServerName') AS nvarchar(128)),
       CAST(SERVERPROPERTY('ProductVersion') AS nvarchar(128)),
       CAST(SERVERPROPERTY('Edition') AS nvarchar(128))`

	fetchGovernorStateQueryConstant = `SELECT configuration.is_enabled,
       ISNULL(SCHEMA_NAME(classifier.schema_id), ''),
       ISNULL(classifier.name, ''),
       ISNULL(modules.definition, ''),
       ISNULL(configuration.max_outstanding_io_per_volume, 0)
FROM sys.resource_governor_configuration AS configuration
LEFT JOIN sys.objects AS classifier ON classifier.object_id = configuration.classifier_function_id
LEFT JOIN sys.sql_modules AS modules ON modules.object_id = configuration.classifier_function_id`

	listResourcePoolsQueryConstant = `SELECT name,
       min_cpu_percent,
       max_cpu_percent,
       cap_cpu_percent,
       min_memory_percent,
       max_memory_percent,
       ISNULL(min_iops_per_volume, 0),
       ISNULL(max_iops_per_volume, 0)
FROM sys.resource_governor_resource_pools
ORDER BY pool_id`

	resourcePoolExistsQueryConstant = `SELECT COUNT(*)
FROM sys.resource_governor_resource_pools
WHERE name = @poolName`

	listWorkloadGroupsQueryConstant = `SELECT workload_groups.name,
       resource_pools.name,
       workload_groups.importance,
       workload_groups.request_max_memory_grant_percent,
       workload_groups.request_max_cpu_time_sec,
       workload_groups.request_memory_grant_timeout_sec,
       workload_groups.max_dop,
       workload_groups.group_max_requests
FROM sys.resource_governor_workload_groups AS workload_groups
JOIN sys.resource_governor_resource_pools AS resource_pools ON resource_pools.pool_id = workload_groups.pool_id
WHERE resource_pools.name = @poolName
ORDER BY workload_groups.group_id`

	fetchGovernorStatePreIOQueryConstant = `SELECT configuration.is_enabled,
       ISNULL(SCHEMA_NAME(classifier.schema_id), ''),
       ISNULL(classifier.name, ''),
       ISNULL(modules.definition, '')
FROM sys.resource_governor_configuration AS configuration
LEFT JOIN sys.objects AS classifier ON classifier.object_id = configuration.classifier_function_id
LEFT JOIN sys.sql_modules AS modules ON modules.object_id = configuration.classifier_function_id`

	listResourcePoolsPreIOQueryConstant = `SELECT name,
       min_cpu_percent,
       max_cpu_percent,
       cap_cpu_percent,
       min_memory_percent,
       max_memory_percent
FROM sys.resource_governor_resource_pools
ORDER BY pool_id`

	listResourcePoolsPreCapQueryConstant = `SELECT name,
       min_cpu_percent,
       max_cpu_percent,
       min_memory_percent,
       max_memory_percent
FROM sys.resource_governor_resource_pools
ORDER BY pool_id`
)

// OperationName describes a named gateway operation used in error reporting.
type OperationName string

// OperationError wraps a gateway failure with the operation that produced it.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error renders the operation-scoped failure description.
func (operationError OperationError) Error() string {
	return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause for errors.Is and errors.As inspection.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// Gateway exposes Resource Governor catalog operations over one server session.
type Gateway struct {
	database *sql.DB

	cachedMajorVersion int
	majorVersionCached bool
}

// NewGateway wraps an open database handle.
func NewGateway(databaseHandle *sql.DB) *Gateway {
	return &Gateway{database: databaseHandle}
}

// Close releases the underlying database handle.
func (gateway *Gateway) Close() error {
	return gateway.database.Close()
}

// DescribeServer resolves the connected server's identity attributes.
func (gateway *Gateway) DescribeServer(executionContext context.Context) (ServerDescriptor, error) {
	var serverName string
	var productVersion string
	var edition string

	scanError := gateway.database.QueryRowContext(executionContext, describeServerQueryConstant).
		Scan(&serverName, &productVersion, &edition)
	if scanError != nil {
		return ServerDescriptor{}, OperationError{Operation: describeServerOperationNameConstant, Cause: scanError}
	}

	majorVersion, parseError := parseMajorVersion(productVersion)
	if parseError != nil {
		return ServerDescriptor{}, OperationError{Operation: describeServerOperationNameConstant, Cause: parseError}
	}

	gateway.cachedMajorVersion = majorVersion
	gateway.majorVersionCached = true

	descriptor := ServerDescriptor{
		Name:         serverName,
		MajorVersion: majorVersion,
		Edition:      edition,
	}

	return descriptor, nil
}

func (gateway *Gateway) resolveMajorVersion(executionContext context.Context) (int, error) {
	if gateway.majorVersionCached {
		return gateway.cachedMajorVersion, nil
	}

	descriptor, describeError := gateway.DescribeServer(executionContext)
	if describeError != nil {
		return 0, describeError
	}

	return descriptor.MajorVersion, nil
}

// resourcePoolsQueryForVersion picks the pool catalog query matching the
// columns the server version ships. Missing columns leave the corresponding
// definition fields at zero.
func resourcePoolsQueryForVersion(majorVersion int) (queryText string, includeCapColumn bool, includeIOPSColumns bool) {
	switch {
	case majorVersion >= ioResourceColumnsMinimumMajorVersionConstant:
		return listResourcePoolsQueryConstant, true, true
	case majorVersion >= capCPUColumnMinimumMajorVersionConstant:
		return listResourcePoolsPreIOQueryConstant, true, false
	default:
		return listResourcePoolsPreCapQueryConstant, false, false
	}
}

// governorStateQueryForVersion picks the configuration query matching the
// columns the server version ships.
func governorStateQueryForVersion(majorVersion int) (queryText string, includeOutstandingIOColumn bool) {
	if majorVersion >= ioResourceColumnsMinimumMajorVersionConstant {
		return fetchGovernorStateQueryConstant, true
	}
	return fetchGovernorStatePreIOQueryConstant, false
}

// FetchGovernorState reads the server-wide Resource Governor configuration.
func (gateway *Gateway) FetchGovernorState(executionContext context.Context) (GovernorState, error) {
	majorVersion, versionError := gateway.resolveMajorVersion(executionContext)
	if versionError != nil {
		return GovernorState{}, versionError
	}

	queryText, includeOutstandingIOColumn := governorStateQueryForVersion(majorVersion)

	var state GovernorState
	scanTargets := []any{
		&state.Enabled,
		&state.ClassifierFunctionSchema,
		&state.ClassifierFunctionName,
		&state.ClassifierDefinition,
	}
	if includeOutstandingIOColumn {
		scanTargets = append(scanTargets, &state.MaxOutstandingIOPerVolume)
	}

	scanError := gateway.database.QueryRowContext(executionContext, queryText).Scan(scanTargets...)
	if scanError != nil {
		return GovernorState{}, OperationError{Operation: fetchGovernorStateOperationName, Cause: scanError}
	}

	return state, nil
}

// ListResourcePools enumerates every resource pool defined on the server.
func (gateway *Gateway) ListResourcePools(executionContext context.Context) ([]ResourcePoolDefinition, error) {
	majorVersion, versionError := gateway.resolveMajorVersion(executionContext)
	if versionError != nil {
		return nil, versionError
	}

	queryText, includeCapColumn, includeIOPSColumns := resourcePoolsQueryForVersion(majorVersion)

	poolRows, queryError := gateway.database.QueryContext(executionContext, queryText)
	if queryError != nil {
		return nil, OperationError{Operation: listResourcePoolsOperationNameConstant, Cause: queryError}
	}
	defer poolRows.Close()

	var poolDefinitions []ResourcePoolDefinition
	for poolRows.Next() {
		var definition ResourcePoolDefinition
		scanTargets := []any{
			&definition.Name,
			&definition.MinCPUPercent,
			&definition.MaxCPUPercent,
		}
		if includeCapColumn {
			scanTargets = append(scanTargets, &definition.CapCPUPercent)
		}
		scanTargets = append(scanTargets, &definition.MinMemoryPercent, &definition.MaxMemoryPercent)
		if includeIOPSColumns {
			scanTargets = append(scanTargets, &definition.MinIOPSPerVolume, &definition.MaxIOPSPerVolume)
		}

		if scanError := poolRows.Scan(scanTargets...); scanError != nil {
			return nil, OperationError{Operation: listResourcePoolsOperationNameConstant, Cause: scanError}
		}
		poolDefinitions = append(poolDefinitions, definition)
	}
	if rowsError := poolRows.Err(); rowsError != nil {
		return nil, OperationError{Operation: listResourcePoolsOperationNameConstant, Cause: rowsError}
	}

	return poolDefinitions, nil
}

// ResourcePoolExists reports whether a pool with the provided name is defined.
func (gateway *Gateway) ResourcePoolExists(executionContext context.Context, poolName string) (bool, error) {
	var matchingPoolCount int
	scanError := gateway.database.QueryRowContext(
		executionContext,
		resourcePoolExistsQueryConstant,
		sql.Named(poolNameParameterConstant, poolName),
	).Scan(&matchingPoolCount)
	if scanError != nil {
		return false, OperationError{Operation: resourcePoolExistsOperationName, Cause: scanError}
	}
	return matchingPoolCount > 0, nil
}

// ListWorkloadGroups enumerates the workload groups nested under the named pool.
func (gateway *Gateway) ListWorkloadGroups(executionContext context.Context, poolName string) ([]WorkloadGroupDefinition, error) {
	groupRows, queryError := gateway.database.QueryContext(
		executionContext,
		listWorkloadGroupsQueryConstant,
		sql.Named(poolNameParameterConstant, poolName),
	)
	if queryError != nil {
		return nil, OperationError{Operation: listWorkloadGroupsOperationName, Cause: queryError}
	}
	defer groupRows.Close()

	var groupDefinitions []WorkloadGroupDefinition
	for groupRows.Next() {
		var definition WorkloadGroupDefinition
		scanError := groupRows.Scan(
			&definition.Name,
			&definition.PoolName,
			&definition.Importance,
			&definition.RequestMaxMemoryGrantPercent,
			&definition.RequestMaxCPUTimeSeconds,
			&definition.RequestMemoryGrantTimeoutSeconds,
			&definition.MaxDegreeOfParallelism,
			&definition.GroupMaxRequests,
		)
		if scanError != nil {
			return nil, OperationError{Operation: listWorkloadGroupsOperationName, Cause: scanError}
		}
		groupDefinitions = append(groupDefinitions, definition)
	}
	if rowsError := groupRows.Err(); rowsError != nil {
		return nil, OperationError{Operation: listWorkloadGroupsOperationName, Cause: rowsError}
	}

	return groupDefinitions, nil
}

// ExecuteBatch runs one DDL statement on the server.
func (gateway *Gateway) ExecuteBatch(executionContext context.Context, statement string) error {
	if _, executionError := gateway.database.ExecContext(executionContext, statement); executionError != nil {
		return OperationError{Operation: executeBatchOperationNameConstant, Cause: executionError}
	}
	return nil
}

// DropWorkloadGroup removes the named workload group.
func (gateway *Gateway) DropWorkloadGroup(executionContext context.Context, groupName string) error {
	dropStatement := fmt.Sprintf(dropGroupStatementTemplateConstant, QuoteIdentifier(groupName))
	if _, executionError := gateway.database.ExecContext(executionContext, dropStatement); executionError != nil {
		return OperationError{Operation: dropWorkloadGroupOperationNameConstant, Cause: executionError}
	}
	return nil
}

// DropResourcePool removes the named resource pool.
func (gateway *Gateway) DropResourcePool(executionContext context.Context, poolName string) error {
	dropStatement := fmt.Sprintf(dropPoolStatementTemplateConstant, QuoteIdentifier(poolName))
	if _, executionError := gateway.database.ExecContext(executionContext, dropStatement); executionError != nil {
		return OperationError{Operation: dropResourcePoolOperationNameConstant, Cause: executionError}
	}
	return nil
}

// Reconfigure activates pending Resource Governor metadata changes.
func (gateway *Gateway) Reconfigure(executionContext context.Context) error {
	if _, executionError := gateway.database.ExecContext(executionContext, reconfigureStatementConstant); executionError != nil {
		return OperationError{Operation: reconfigureOperationNameConstant, Cause: executionError}
	}
	return nil
}

func parseMajorVersion(productVersion string) (int, error) {
	versionComponents := strings.SplitN(strings.TrimSpace(productVersion), productVersionSeparatorConstant, 2)
	return strconv.Atoi(versionComponents[0])
}
