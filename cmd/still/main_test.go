package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ZebulonRouseFrantzich/still/internal/testutil"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		expectedExit int
	}{
		{name: "version", args: []string{"version"}, expectedExit: 0},
		{name: "help", args: []string{"--help"}, expectedExit: 0},
		{name: "invalid specifier", args: []string{"install", "--platform", "x86_64_linux", "1password"}, expectedExit: 2},
		{name: "unknown command", args: []string{"uninstall"}, expectedExit: 1},
		{name: "missing arguments", args: []string{"install"}, expectedExit: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.SetupTestEnv(t)
			assert.Equal(t, tt.expectedExit, run(tt.args))
		})
	}
}
