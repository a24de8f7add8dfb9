package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KevinKickass/HotmockBridge/internal/hotmock"
)

func TestParseCommand(t *testing.T) {
	require := require.New(t)

	for in, want := range map[string]hotmock.Command{
		"request": hotmock.Request,
		"OUTPUT":  hotmock.Output,
		"Init":    hotmock.Init,
	} {
		got, err := parseCommand(in)
		require.NoError(err, in)
		require.Equal(want, got, in)
	}

	_, err := parseCommand("toggle")
	require.Error(err)
}

func TestValidateAnalogSetting(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(os.WriteFile(path, []byte(`
board: analog
connectors:
  DO: [6]
  AI: [2]
  AO: [1]
`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"validate", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(rootCmd.Execute())
	require.Contains(out.String(), "board: analog")
	require.Contains(out.String(), "DO06  DO7")
	require.Contains(out.String(), "AI02  AI1")
	require.Contains(out.String(), "GS01  GS1")
	require.Contains(out.String(), "AO [1] (no ports)")
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte("board: digital\nconnectors:\n  DO: [9]\n"), 0o644))

	rootCmd.SetArgs([]string{"validate", path})
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetErr(nil)
	})

	require.Error(t, rootCmd.Execute())
}
