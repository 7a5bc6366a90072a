package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunCmd(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"run", "--goroutines=4", "--cycles=50", "--write-ratio=0.5", "--seed=7", "--log-level=error"})
	require.NoError(t, cmd.Execute())
}

func TestRunCmd_BadFlags(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"run", "--goroutines=0", "--log-level=error"})
	require.Error(t, cmd.Execute())

	cmd = newRootCmd()
	cmd.SetArgs([]string{"run", "--log-level=loud"})
	require.Error(t, cmd.Execute())
}
