package main

import (
	"testing"

	"github.com/jessonx/flow-field/pkg/config"
)

func TestFlagNamesAreWellFormed(t *testing.T) {
	malformedFlags := config.CollectMalformedFlags()
	if len(malformedFlags) != 0 {
		t.Fail()
		for _, flagErr := range malformedFlags {
			t.Error(flagErr)
		}
	}
}
