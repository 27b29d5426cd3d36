package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "stated", cmd.Use)
	assert.Contains(t, cmd.Long, "typestate")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"generate", "check", "plan", "graph", "watch", "history"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestGenerateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	genCmd, _, err := cmd.Find([]string{"generate"})
	require.NoError(t, err)

	jobsFlag := genCmd.Flags().Lookup("jobs")
	require.NotNil(t, jobsFlag)
	assert.Equal(t, "j", jobsFlag.Shorthand)
	assert.Equal(t, "0", jobsFlag.DefValue)

	for _, name := range []string{"force", "no-cache", "cache"} {
		assert.NotNil(t, genCmd.Flags().Lookup(name), name)
	}
}

func TestWatchCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	watchCmd, _, err := cmd.Find([]string{"watch"})
	require.NoError(t, err)

	debounceFlag := watchCmd.Flags().Lookup("debounce")
	require.NotNil(t, debounceFlag)
	assert.Equal(t, "200ms", debounceFlag.DefValue)
}

func TestHistoryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	historyCmd, _, err := cmd.Find([]string{"history"})
	require.NoError(t, err)

	limitFlag := historyCmd.Flags().Lookup("limit")
	require.NotNil(t, limitFlag)
	assert.Equal(t, "n", limitFlag.Shorthand)
	assert.Equal(t, "20", limitFlag.DefValue)
	assert.NotNil(t, historyCmd.Flags().Lookup("run"))
}

func TestGraphCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	graphCmd, _, err := cmd.Find([]string{"graph"})
	require.NoError(t, err)

	dotFlag := graphCmd.Flags().Lookup("dot")
	require.NotNil(t, dotFlag)
	assert.Equal(t, "false", dotFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"check", "--format", "yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	quiet := newLogger(buf, false)
	quiet.Warn("hidden")
	assert.Empty(t, buf.String())

	loud := newLogger(buf, true)
	loud.Debug("shown", "dir", "door")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "dir=door")

	assert.NotNil(t, (&RootOptions{}).logger())
}
