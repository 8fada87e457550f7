package mssql

import (
	"fmt"
	"strings"
)

const (
	identifierQuoteOpenConstant       = "["
	identifierQuoteCloseConstant      = "]"
	identifierCloseEscapeConstant     = "]]"
	literalQuoteConstant              = "'"
	literalQuoteEscapeConstant        = "''"
	settingSeparatorConstant          = ", "
	createPoolStatementTemplate       = "CREATE RESOURCE POOL %s WITH (%s);"
	createGroupStatementTemplate      = "CREATE WORKLOAD GROUP %s WITH (%s) USING %s;"
	classifierBindingTemplate         = "ALTER RESOURCE GOVERNOR WITH (CLASSIFIER_FUNCTION = %s.%s);"
	outstandingIOStatementTemplate    = "ALTER RESOURCE GOVERNOR WITH (MAX_OUTSTANDING_IO_PER_VOLUME = %d);"
	governorDisableStatementConstant  = "ALTER RESOURCE GOVERNOR DISABLE;"
	minCPUPercentSettingTemplate      = "MIN_CPU_PERCENT = %d"
	maxCPUPercentSettingTemplate      = "MAX_CPU_PERCENT = %d"
	capCPUPercentSettingTemplate      = "CAP_CPU_PERCENT = %d"
	minMemoryPercentSettingTemplate   = "MIN_MEMORY_PERCENT = %d"
	maxMemoryPercentSettingTemplate   = "MAX_MEMORY_PERCENT = %d"
	minIOPSSettingTemplate            = "MIN_IOPS_PER_VOLUME = %d"
	maxIOPSSettingTemplate            = "MAX_IOPS_PER_VOLUME = %d"
	importanceSettingTemplate         = "IMPORTANCE = %s"
	maxMemoryGrantSettingTemplate     = "REQUEST_MAX_MEMORY_GRANT_PERCENT = %d"
	maxCPUTimeSettingTemplate         = "REQUEST_MAX_CPU_TIME_SEC = %d"
	grantTimeoutSettingTemplate       = "REQUEST_MEMORY_GRANT_TIMEOUT_SEC = %d"
	maxDegreeSettingTemplate          = "MAX_DOP = %d"
	groupMaxRequestsSettingTemplate   = "GROUP_MAX_REQUESTS = %d"
	defaultImportanceLiteralConstant  = "MEDIUM"
)

// QuoteIdentifier renders a bracket-quoted T-SQL identifier.
func QuoteIdentifier(identifier string) string {
	escapedIdentifier := strings.ReplaceAll(identifier, identifierQuoteCloseConstant, identifierCloseEscapeConstant)
	return identifierQuoteOpenConstant + escapedIdentifier + identifierQuoteCloseConstant
}

// QuoteLiteral renders a single-quoted T-SQL string literal.
func QuoteLiteral(literal string) string {
	escapedLiteral := strings.ReplaceAll(literal, literalQuoteConstant, literalQuoteEscapeConstant)
	return literalQuoteConstant + escapedLiteral + literalQuoteConstant
}

// ScriptResourcePool renders the CREATE RESOURCE POOL statement for the
// definition. Cap and IOPS settings the source catalog did not report (zero
// values, pre-2012 and pre-2014 servers) are omitted so the statement replays
// on destinations of the same vintage.
func ScriptResourcePool(definition ResourcePoolDefinition) string {
	poolSettings := []string{
		fmt.Sprintf(minCPUPercentSettingTemplate, definition.MinCPUPercent),
		fmt.Sprintf(maxCPUPercentSettingTemplate, definition.MaxCPUPercent),
	}
	if definition.CapCPUPercent > 0 {
		poolSettings = append(poolSettings, fmt.Sprintf(capCPUPercentSettingTemplate, definition.CapCPUPercent))
	}
	poolSettings = append(
		poolSettings,
		fmt.Sprintf(minMemoryPercentSettingTemplate, definition.MinMemoryPercent),
		fmt.Sprintf(maxMemoryPercentSettingTemplate, definition.MaxMemoryPercent),
	)
	if definition.MinIOPSPerVolume > 0 {
		poolSettings = append(poolSettings, fmt.Sprintf(minIOPSSettingTemplate, definition.MinIOPSPerVolume))
	}
	if definition.MaxIOPSPerVolume > 0 {
		poolSettings = append(poolSettings, fmt.Sprintf(maxIOPSSettingTemplate, definition.MaxIOPSPerVolume))
	}

	return fmt.Sprintf(createPoolStatementTemplate, QuoteIdentifier(definition.Name), strings.Join(poolSettings, settingSeparatorConstant))
}

// ScriptWorkloadGroup renders the CREATE WORKLOAD GROUP statement for the definition.
func ScriptWorkloadGroup(definition WorkloadGroupDefinition) string {
	importanceLiteral := strings.ToUpper(strings.TrimSpace(definition.Importance))
	if len(importanceLiteral) == 0 {
		importanceLiteral = defaultImportanceLiteralConstant
	}

	groupSettings := []string{
		fmt.Sprintf(importanceSettingTemplate, importanceLiteral),
		fmt.Sprintf(maxMemoryGrantSettingTemplate, definition.RequestMaxMemoryGrantPercent),
		fmt.Sprintf(maxCPUTimeSettingTemplate, definition.RequestMaxCPUTimeSeconds),
		fmt.Sprintf(grantTimeoutSettingTemplate, definition.RequestMemoryGrantTimeoutSeconds),
		fmt.Sprintf(maxDegreeSettingTemplate, definition.MaxDegreeOfParallelism),
		fmt.Sprintf(groupMaxRequestsSettingTemplate, definition.GroupMaxRequests),
	}

	return fmt.Sprintf(
		createGroupStatementTemplate,
		QuoteIdentifier(definition.Name),
		strings.Join(groupSettings, settingSeparatorConstant),
		QuoteIdentifier(definition.PoolName),
	)
}

// ScriptGovernorState renders the ordered statements replaying server-wide governor settings.
//
// The classifier function body ships first so the binding statement that
// follows can resolve it on the destination.
func ScriptGovernorState(state GovernorState) []string {
	var statements []string

	if state.HasClassifierFunction() && len(strings.TrimSpace(state.ClassifierDefinition)) > 0 {
		statements = append(statements, strings.TrimSpace(state.ClassifierDefinition))
		statements = append(statements, fmt.Sprintf(
			classifierBindingTemplate,
			QuoteIdentifier(state.ClassifierFunctionSchema),
			QuoteIdentifier(state.ClassifierFunctionName),
		))
	}

	if state.MaxOutstandingIOPerVolume > 0 {
		statements = append(statements, fmt.Sprintf(outstandingIOStatementTemplate, state.MaxOutstandingIOPerVolume))
	}

	if !state.Enabled {
		statements = append(statements, governorDisableStatementConstant)
	}

	return statements
}
