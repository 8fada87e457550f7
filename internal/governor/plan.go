package governor

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	planRenderErrorTemplateConstant = "unable to render migration plan: %w"
)

// PlannedActionKind identifies one mutating step of the migration plan.
type PlannedActionKind string

// Planned action kinds recorded by the migration service.
const (
	PlannedActionApplySettings       PlannedActionKind = PlannedActionKind("apply_governor_settings")
	PlannedActionDropWorkloadGroup   PlannedActionKind = PlannedActionKind("drop_workload_group")
	PlannedActionDropResourcePool    PlannedActionKind = PlannedActionKind("drop_resource_pool")
	PlannedActionCreateResourcePool  PlannedActionKind = PlannedActionKind("create_resource_pool")
	PlannedActionCreateWorkloadGroup PlannedActionKind = PlannedActionKind("create_workload_group")
	PlannedActionReconfigure         PlannedActionKind = PlannedActionKind("reconfigure")
)

// PlannedAction describes one mutating step that runs against the destination.
type PlannedAction struct {
	Kind      PlannedActionKind `yaml:"kind"`
	Target    string            `yaml:"target,omitempty"`
	Statement string            `yaml:"statement,omitempty"`
}

// MigrationPlan lists every mutating step of a migration in execution order.
type MigrationPlan struct {
	SourceServer      string          `yaml:"source_server"`
	DestinationServer string          `yaml:"destination_server"`
	DryRun            bool            `yaml:"dry_run"`
	Actions           []PlannedAction `yaml:"actions"`
}

// Render serializes the plan as a YAML document.
func (plan MigrationPlan) Render() (string, error) {
	renderedPlan, marshalError := yaml.Marshal(plan)
	if marshalError != nil {
		return "", fmt.Errorf(planRenderErrorTemplateConstant, marshalError)
	}
	return string(renderedPlan), nil
}
