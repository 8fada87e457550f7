package governor

import "strings"

const (
	reservedInternalPoolNameConstant = "internal"
	reservedDefaultPoolNameConstant  = "default"

	sourceConfigurationKeySuffixConstant              = ".source"
	destinationConfigurationKeySuffixConstant         = ".destination"
	sourceUserConfigurationKeySuffixConstant          = ".source_user"
	sourcePasswordConfigurationKeySuffixConstant      = ".source_password"
	destinationUserConfigurationKeySuffixConstant     = ".destination_user"
	destinationPasswordConfigurationKeySuffixConstant = ".destination_password"
	includePoolsConfigurationKeySuffixConstant        = ".include_pools"
	excludePoolsConfigurationKeySuffixConstant        = ".exclude_pools"
	reservedPoolsConfigurationKeySuffixConstant       = ".reserved_pools"
	forceConfigurationKeySuffixConstant               = ".force"
	dryRunConfigurationKeySuffixConstant              = ".dry_run"
)

// CommandConfiguration captures persisted configuration for the copy command.
type CommandConfiguration struct {
	Source              string   `mapstructure:"source"`
	Destination         string   `mapstructure:"destination"`
	SourceUser          string   `mapstructure:"source_user"`
	SourcePassword      string   `mapstructure:"source_password"`
	DestinationUser     string   `mapstructure:"destination_user"`
	DestinationPassword string   `mapstructure:"destination_password"`
	IncludePools        []string `mapstructure:"include_pools"`
	ExcludePools        []string `mapstructure:"exclude_pools"`
	ReservedPools       []string `mapstructure:"reserved_pools"`
	Force               bool     `mapstructure:"force"`
	DryRun              bool     `mapstructure:"dry_run"`
}

// DefaultCommandConfiguration returns baseline configuration values for the copy command.
//
// The reserved pool names ship as configuration rather than a fixed constant
// so future engine-reserved names can be added without a rebuild.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		ReservedPools: []string{reservedInternalPoolNameConstant, reservedDefaultPoolNameConstant},
	}
}

// DefaultConfigurationValues exposes the copy command defaults keyed for the configuration loader.
func DefaultConfigurationValues(configurationKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationKey + sourceConfigurationKeySuffixConstant:              defaults.Source,
		configurationKey + destinationConfigurationKeySuffixConstant:         defaults.Destination,
		configurationKey + sourceUserConfigurationKeySuffixConstant:          defaults.SourceUser,
		configurationKey + sourcePasswordConfigurationKeySuffixConstant:      defaults.SourcePassword,
		configurationKey + destinationUserConfigurationKeySuffixConstant:     defaults.DestinationUser,
		configurationKey + destinationPasswordConfigurationKeySuffixConstant: defaults.DestinationPassword,
		configurationKey + includePoolsConfigurationKeySuffixConstant:        defaults.IncludePools,
		configurationKey + excludePoolsConfigurationKeySuffixConstant:        defaults.ExcludePools,
		configurationKey + reservedPoolsConfigurationKeySuffixConstant:       defaults.ReservedPools,
		configurationKey + forceConfigurationKeySuffixConstant:               defaults.Force,
		configurationKey + dryRunConfigurationKeySuffixConstant:              defaults.DryRun,
	}
}

// Sanitize trims configured values and removes empty list entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Source = strings.TrimSpace(configuration.Source)
	sanitized.Destination = strings.TrimSpace(configuration.Destination)
	sanitized.SourceUser = strings.TrimSpace(configuration.SourceUser)
	sanitized.DestinationUser = strings.TrimSpace(configuration.DestinationUser)
	sanitized.IncludePools = sanitizeNameList(configuration.IncludePools)
	sanitized.ExcludePools = sanitizeNameList(configuration.ExcludePools)
	sanitized.ReservedPools = sanitizeNameList(configuration.ReservedPools)
	return sanitized
}

// ListCommandConfiguration captures persisted configuration for the list command.
type ListCommandConfiguration struct {
	Server   string `mapstructure:"server"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// Sanitize trims configured list command values.
func (configuration ListCommandConfiguration) Sanitize() ListCommandConfiguration {
	sanitized := configuration
	sanitized.Server = strings.TrimSpace(configuration.Server)
	sanitized.User = strings.TrimSpace(configuration.User)
	return sanitized
}

func sanitizeNameList(names []string) []string {
	var sanitizedNames []string
	for _, name := range names {
		trimmedName := strings.TrimSpace(name)
		if len(trimmedName) == 0 {
			continue
		}
		sanitizedNames = append(sanitizedNames, trimmedName)
	}
	return sanitizedNames
}
