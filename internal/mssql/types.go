package mssql

import "strings"

const (
	enterpriseEditionMarkerConstant = "enterprise"
	developerEditionMarkerConstant  = "developer"
	evaluationEditionMarkerConstant = "evaluation"
)

// ServerDescriptor captures the identity attributes resolved from a connected server.
type ServerDescriptor struct {
	Name         string
	MajorVersion int
	Edition      string
}

// SupportsResourceGovernor reports whether the server edition enforces Resource Governor limits.
func (descriptor ServerDescriptor) SupportsResourceGovernor() bool {
	normalizedEdition := strings.ToLower(descriptor.Edition)
	editionMarkers := []string{
		enterpriseEditionMarkerConstant,
		developerEditionMarkerConstant,
		evaluationEditionMarkerConstant,
	}
	for _, editionMarker := range editionMarkers {
		if strings.Contains(normalizedEdition, editionMarker) {
			return true
		}
	}
	return false
}

// GovernorState describes the server-wide Resource Governor configuration.
type GovernorState struct {
	Enabled                   bool
	ClassifierFunctionSchema  string
	ClassifierFunctionName    string
	ClassifierDefinition      string
	MaxOutstandingIOPerVolume int
}

// HasClassifierFunction reports whether a classifier function is bound to the governor.
func (state GovernorState) HasClassifierFunction() bool {
	return len(strings.TrimSpace(state.ClassifierFunctionName)) > 0
}

// ResourcePoolDefinition captures the tunable settings of one resource pool.
type ResourcePoolDefinition struct {
	Name             string
	MinCPUPercent    int
	MaxCPUPercent    int
	CapCPUPercent    int
	MinMemoryPercent int
	MaxMemoryPercent int
	MinIOPSPerVolume int
	MaxIOPSPerVolume int
}

// WorkloadGroupDefinition captures the tunable settings of one workload group.
type WorkloadGroupDefinition struct {
	Name                             string
	PoolName                         string
	Importance                       string
	RequestMaxMemoryGrantPercent     int
	RequestMaxCPUTimeSeconds         int
	RequestMemoryGrantTimeoutSeconds int
	MaxDegreeOfParallelism           int
	GroupMaxRequests                 int
}
