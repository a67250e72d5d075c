// Flow-field uses flags and a single config file for configuration.
// A config file is plain JSON whose top-level keys are flag names and whose
// values are the scalars to set them to.

package config

import (
	"errors"
	"flag"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

// wellFormedFlagName is the snake_case convention every flow-field flag follows,
// so that config file keys and flag names read the same.
var wellFormedFlagName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// flagValueToString converts a decoded JSON value to its string representation suitable for flag setting.
func flagValueToString(value *structpb.Value) (string, error) {
	switch kind := value.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue, nil
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(kind.BoolValue), nil
	case *structpb.Value_NumberValue:
		// Plain notation so integral values land on int flags unchanged.
		return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64), nil
	case *structpb.Value_NullValue:
		return "", errors.New("null is not a flag value")
	case *structpb.Value_ListValue, *structpb.Value_StructValue:
		return "", errors.New("nested/list values not supported")
	default:
		return "", fmt.Errorf("unsupported kind: %T", kind)
	}
}

// collectConfigFlags converts every top-level entry of the decoded config into
// the string form `flag.Set` accepts. Each key must name a defined flag.
func collectConfigFlags(conf *structpb.Struct) (map[ /*flagName*/ string] /*flagValue*/ string, error) {
	flags := make(map[string]string, len(conf.GetFields()))
	for name, value := range conf.GetFields() {
		if flag.Lookup(name) == nil {
			return nil, fmt.Errorf("config entry '%s' does not name a defined flag", name)
		}
		stringValue, convErr := flagValueToString(value)
		if convErr != nil {
			return nil, fmt.Errorf("failed to convert '%s': %w", name, convErr)
		}
		flags[name] = stringValue
	}
	return flags, nil
}

// setConfigFlags sets all the entries in the given `conf` to the global flag variables.
func setConfigFlags(conf *structpb.Struct) error {
	configFlags, err := collectConfigFlags(conf)
	if err != nil {
		return fmt.Errorf("failed to collect flags: %w", err)
	}
	for flagName, flagValue := range configFlags {
		if setErr := flag.Set(flagName, flagValue); setErr != nil {
			return fmt.Errorf("failed to set flag %s: %w", flagName, setErr)
		}
	}
	return nil
}

// CollectMalformedFlags collects all defined flags whose names break the snake_case
// convention and therefore cannot be addressed from a config file cleanly.
// An error exists in the results corresponding to each malformed flag.
func CollectMalformedFlags() []error {
	errs := make([]error, 0)
	flag.VisitAll(func(f *flag.Flag) {
		if strings.HasPrefix(f.Name, "test.") { // Skip test flags.
			return
		}
		if !wellFormedFlagName.MatchString(f.Name) {
			errs = append(errs, fmt.Errorf("flag '%s' does not follow snake_case naming", f.Name))
		}
	})
	return errs
}
