package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/jessonx/flow-field/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scalar flags of every supported kind, exercised only by the loader tests.
var (
	testString = flag.String("config_test_string", "default", "Loader test flag.")
	testInt    = flag.Int("config_test_int", 1, "Loader test flag.")
	testBool   = flag.Bool("config_test_bool", false, "Loader test flag.")
	testFloat  = flag.Float64("config_test_float", 0.5, "Loader test flag.")
)

// writeConfig drops the given JSON into a throwaway config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// pinTestFlags re-arms every loader test flag with its default and restores it
// after the test, so tests can override them in any order.
func pinTestFlags(t *testing.T) {
	t.Helper()
	utils.SetTestFlag(t, "config_test_string", "default")
	utils.SetTestFlag(t, "config_test_int", "1")
	utils.SetTestFlag(t, "config_test_bool", "false")
	utils.SetTestFlag(t, "config_test_float", "0.5")
}

func TestApplyConfigFile(t *testing.T) {
	t.Run("Overrides every scalar kind", func(t *testing.T) {
		pinTestFlags(t)
		path := writeConfig(t, `{
			"config_test_string": "from-file",
			"config_test_int": 42,
			"config_test_bool": true,
			"config_test_float": 2.5
		}`)

		require.NoError(t, applyConfigFile(path))
		assert.Equal(t, "from-file", *testString)
		assert.Equal(t, 42, *testInt)
		assert.True(t, *testBool)
		assert.Equal(t, 2.5, *testFloat)
	})

	t.Run("Leaves unmentioned flags at their defaults", func(t *testing.T) {
		pinTestFlags(t)
		path := writeConfig(t, `{"config_test_int": 7}`)

		require.NoError(t, applyConfigFile(path))
		assert.Equal(t, 7, *testInt)
		assert.Equal(t, "default", *testString)
	})

	t.Run("Missing file is reported", func(t *testing.T) {
		err := applyConfigFile(filepath.Join(t.TempDir(), "absent.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Malformed JSON is rejected", func(t *testing.T) {
		path := writeConfig(t, `{"config_test_string": `)
		assert.Error(t, applyConfigFile(path))
	})

	t.Run("Unknown flag names are rejected", func(t *testing.T) {
		path := writeConfig(t, `{"no_such_flag_defined": true}`)
		assert.Error(t, applyConfigFile(path))
	})

	t.Run("Nested values are rejected without side effects", func(t *testing.T) {
		pinTestFlags(t)
		path := writeConfig(t, `{"config_test_string": {"nested": 1}, "config_test_int": 9}`)

		assert.Error(t, applyConfigFile(path))
		assert.Equal(t, "default", *testString)
		assert.Equal(t, 1, *testInt, "A rejected config must not override any flag")
	})

	t.Run("Fractional number cannot set an int flag", func(t *testing.T) {
		pinTestFlags(t)
		path := writeConfig(t, `{"config_test_int": 4.5}`)

		assert.Error(t, applyConfigFile(path))
	})
}
