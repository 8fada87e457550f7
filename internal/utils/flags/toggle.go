// Package flags provides shared pflag helpers for the command-line surface.
package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const (
	toggleTrueCanonicalValue  = "true"
	toggleFalseCanonicalValue = "false"
	toggleYesLiteral          = "yes"
	toggleNoLiteral           = "no"
	toggleOnLiteral           = "on"
	toggleOffLiteral          = "off"
	toggleOneLiteral          = "1"
	toggleZeroLiteral         = "0"
	toggleParseErrorTemplate  = "invalid toggle value %q"
	toggleValueTypeConstant   = "toggle"
)

var (
	trueLiteralSet = map[string]struct{}{
		toggleTrueCanonicalValue: {},
		toggleYesLiteral:         {},
		toggleOnLiteral:          {},
		toggleOneLiteral:         {},
	}
	falseLiteralSet = map[string]struct{}{
		toggleFalseCanonicalValue: {},
		toggleNoLiteral:           {},
		toggleOffLiteral:          {},
		toggleZeroLiteral:         {},
	}
)

type toggleFlagValue struct {
	target *bool
}

// String renders the canonical true/false representation of the toggle.
func (value *toggleFlagValue) String() string {
	if value.target != nil && *value.target {
		return toggleTrueCanonicalValue
	}
	return toggleFalseCanonicalValue
}

// Set parses yes/no style literals into the underlying boolean target.
func (value *toggleFlagValue) Set(rawValue string) error {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	if _, isTrue := trueLiteralSet[normalizedValue]; isTrue {
		*value.target = true
		return nil
	}
	if _, isFalse := falseLiteralSet[normalizedValue]; isFalse {
		*value.target = false
		return nil
	}
	return fmt.Errorf(toggleParseErrorTemplate, rawValue)
}

// Type identifies the flag value kind for usage output.
func (value *toggleFlagValue) Type() string {
	return toggleValueTypeConstant
}

// AddToggleFlag registers a boolean toggle flag that accepts yes/no style values.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	if flagSet == nil || target == nil || len(name) == 0 {
		return
	}

	*target = defaultValue
	flagValue := &toggleFlagValue{target: target}
	registeredFlag := flagSet.VarPF(flagValue, name, "", usage)
	registeredFlag.NoOptDefVal = toggleTrueCanonicalValue
}
