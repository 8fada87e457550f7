package utils

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorOldConstant              = "."
	environmentKeySeparatorNewConstant              = "_"
	configurationReadErrorTemplateConstant          = "unable to read configuration file: %w"
	configurationUnmarshalErrorTemplateConstant     = "unable to decode configuration: %w"
	embeddedConfigurationMergeErrorTemplateConstant = "unable to merge embedded configuration: %w"
)

// ConfigurationLoader resolves CLI configuration from layered sources.
// Precedence from weakest to strongest: programmatic defaults, embedded
// baseline configuration, configuration file, environment variables.
type ConfigurationLoader struct {
	configurationName         string
	configurationType         string
	environmentPrefix         string
	searchPaths               []string
	environmentKeyReplacer    *strings.Replacer
	embeddedConfiguration     []byte
	embeddedConfigurationType string
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// NewConfigurationLoader creates a loader that searches known paths and respects an environment prefix.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName:      configurationName,
		configurationType:      configurationType,
		environmentPrefix:      environmentPrefix,
		searchPaths:            append([]string(nil), searchPaths...),
		environmentKeyReplacer: strings.NewReplacer(environmentKeySeparatorOldConstant, environmentKeySeparatorNewConstant),
	}
}

// SetEmbeddedConfiguration registers baseline configuration data merged beneath user-provided sources.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte, configurationType string) {
	if loader == nil {
		return
	}

	loader.embeddedConfigurationType = strings.TrimSpace(configurationType)
	if len(configurationData) == 0 {
		loader.embeddedConfiguration = nil
		return
	}
	loader.embeddedConfiguration = append([]byte(nil), configurationData...)
}

// LoadConfiguration populates targetConfiguration from the layered sources and
// reports which configuration file, if any, contributed.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.configurationName)
	viperInstance.SetConfigType(loader.configurationType)

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if embedError := loader.mergeEmbeddedConfiguration(viperInstance); embedError != nil {
		return LoadedConfiguration{}, embedError
	}

	loader.bindEnvironment(viperInstance)

	if fileError := loader.mergeConfigurationFile(viperInstance, configurationFilePath); fileError != nil {
		return LoadedConfiguration{}, fileError
	}

	if unmarshalError := viperInstance.Unmarshal(targetConfiguration); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplateConstant, unmarshalError)
	}

	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}

func (loader *ConfigurationLoader) mergeEmbeddedConfiguration(viperInstance *viper.Viper) error {
	if len(loader.embeddedConfiguration) == 0 {
		return nil
	}

	if len(loader.embeddedConfigurationType) > 0 {
		viperInstance.SetConfigType(loader.embeddedConfigurationType)
	}
	mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.embeddedConfiguration))
	viperInstance.SetConfigType(loader.configurationType)

	if mergeError != nil {
		return fmt.Errorf(embeddedConfigurationMergeErrorTemplateConstant, mergeError)
	}
	return nil
}

func (loader *ConfigurationLoader) bindEnvironment(viperInstance *viper.Viper) {
	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	if loader.environmentKeyReplacer != nil {
		viperInstance.SetEnvKeyReplacer(loader.environmentKeyReplacer)
	}
	viperInstance.AutomaticEnv()
}

func (loader *ConfigurationLoader) mergeConfigurationFile(viperInstance *viper.Viper, configurationFilePath string) error {
	if len(strings.TrimSpace(configurationFilePath)) > 0 {
		viperInstance.SetConfigFile(configurationFilePath)
	} else {
		for _, searchPath := range loader.searchPaths {
			viperInstance.AddConfigPath(searchPath)
		}
	}

	mergeError := viperInstance.MergeInConfig()
	if mergeError == nil {
		return nil
	}
	if _, isNotFound := mergeError.(viper.ConfigFileNotFoundError); isNotFound {
		return nil
	}
	return fmt.Errorf(configurationReadErrorTemplateConstant, mergeError)
}
