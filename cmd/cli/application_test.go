package cli_test

import (
	"bytes"
	"testing"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/temirov/rgcopy/cmd/cli"
)

const (
	testCopyCommandNameConstant             = "copy"
	testListCommandNameConstant             = "list"
	testExpectedConfigurationTypeConstant   = "yaml"
	testReservedInternalPoolNameConstant    = "internal"
	testReservedDefaultPoolNameConstant     = "default"
	testExpectedDefaultLogLevelConstant     = "info"
	testExpectedDefaultLogFormatConstant    = "structured"
	testMapstructureDecodeErrorTemplateText = "embedded configuration must decode cleanly"
)

func TestEmbeddedDefaultConfigurationDecodes(testInstance *testing.T) {
	testInstance.Parallel()

	embeddedConfiguration, configurationType := cli.EmbeddedDefaultConfiguration()
	require.Equal(testInstance, testExpectedConfigurationTypeConstant, configurationType)
	require.NotEmpty(testInstance, embeddedConfiguration)

	viperInstance := viper.New()
	viperInstance.SetConfigType(configurationType)
	require.NoError(testInstance, viperInstance.ReadConfig(bytes.NewReader(embeddedConfiguration)))

	var decodedConfiguration cli.ApplicationConfiguration
	decoder, decoderCreationError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &decodedConfiguration,
		TagName: "mapstructure",
	})
	require.NoError(testInstance, decoderCreationError)
	require.NoError(testInstance, decoder.Decode(viperInstance.AllSettings()), testMapstructureDecodeErrorTemplateText)

	require.Equal(testInstance, testExpectedDefaultLogLevelConstant, decodedConfiguration.Common.LogLevel)
	require.Equal(testInstance, testExpectedDefaultLogFormatConstant, decodedConfiguration.Common.LogFormat)
	require.Equal(
		testInstance,
		[]string{testReservedInternalPoolNameConstant, testReservedDefaultPoolNameConstant},
		decodedConfiguration.Tools.Copy.ReservedPools,
	)
	require.False(testInstance, decodedConfiguration.Tools.Copy.Force)
	require.False(testInstance, decodedConfiguration.Tools.Copy.DryRun)
	require.Empty(testInstance, decodedConfiguration.Tools.Copy.Source)
	require.Empty(testInstance, decodedConfiguration.Tools.List.Server)
}

func TestEmbeddedDefaultConfigurationReturnsIndependentCopies(testInstance *testing.T) {
	testInstance.Parallel()

	firstCopy, _ := cli.EmbeddedDefaultConfiguration()
	firstCopy[0] = '#'

	secondCopy, _ := cli.EmbeddedDefaultConfiguration()
	require.NotEqual(testInstance, firstCopy[0], secondCopy[0])
}

func TestNewApplicationRegistersMigrationCommands(testInstance *testing.T) {
	testInstance.Parallel()

	application := cli.NewApplication()
	require.NotNil(testInstance, application)

	rootCommand := application.RootCommand()
	require.NotNil(testInstance, rootCommand)

	registeredCommandNames := map[string]bool{}
	for _, registeredCommand := range rootCommand.Commands() {
		registeredCommandNames[registeredCommand.Name()] = true
	}

	require.True(testInstance, registeredCommandNames[testCopyCommandNameConstant])
	require.True(testInstance, registeredCommandNames[testListCommandNameConstant])
}
