// Flow-field uses flags and a single config file for configuration.
// A config file is plain JSON whose top-level keys are flag names and whose
// values are the scalars to set them to.

package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var configFilePath = flag.String("config_file", "config.json", "Path to the configuration file.")

// applyConfigFile reads the JSON config at `path` and overrides the matching
// flags. Nothing is overridden when any entry fails to convert or names an
// unknown flag.
func applyConfigFile(path string) error {
	configBytes, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	conf := new(structpb.Struct)
	if err := protojson.Unmarshal(configBytes, conf); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return setConfigFlags(conf)
}

// InitFlags initializes the flags from the config file specified by the -config_file flag.
// It should be called after defining all flags and before using them.
// A missing config file is not an error; the defined flag defaults stay in effect.
func InitFlags() {
	flag.Parse()

	if *configFilePath == "" {
		slog.Info("Config file not specified. Skipping config initialization.")
		return
	}
	err := applyConfigFile(*configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Warn("Config file does not exist.", "path", *configFilePath, "error", err)
	case err != nil:
		slog.Error("Failed to apply config file.", "path", *configFilePath, "error", err)
	}
}
