package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "bruch", cmd.Use)
	assert.Contains(t, cmd.Long, "SQLite")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"status"},
		{"article", "list"},
		{"article", "get"},
		{"article", "add"},
		{"article", "delete"},
		{"sale", "list"},
		{"sale", "checkout"},
		{"sale", "paid"},
		{"sale", "delete"},
		{"sale", "clear"},
		{"sale", "summary"},
		{"sale", "today"},
		{"backup", "create"},
		{"backup", "list"},
		{"backup", "restore"},
		{"backup", "delete"},
		{"backup", "export"},
		{"backup", "import"},
		{"backup", "auto"},
		{"import"},
		{"export"},
		{"sync", "send"},
		{"sync", "receive"},
		{"daemon"},
		{"config", "show"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGermanAliases(t *testing.T) {
	cmd := NewRootCommand()

	sub, _, err := cmd.Find([]string{"artikel", "list"})
	require.NoError(t, err)
	assert.Equal(t, "list", sub.Name())

	sub, _, err = cmd.Find([]string{"verkauf", "checkout"})
	require.NoError(t, err)
	assert.Equal(t, "checkout", sub.Name())
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

	for _, name := range []string{"config", "env-file", "db"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag --%s", name)
	}
}

func TestImportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	importCmd, _, err := cmd.Find([]string{"import"})
	require.NoError(t, err)

	modeFlag := importCmd.Flags().Lookup("mode")
	require.NotNil(t, modeFlag)
	assert.Equal(t, "merge", modeFlag.DefValue)

	assert.NotNil(t, importCmd.Flags().Lookup("as"))
	assert.NotNil(t, importCmd.Flags().Lookup("backup"))
}

func TestCheckoutCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	checkoutCmd, _, err := cmd.Find([]string{"sale", "checkout"})
	require.NoError(t, err)

	for _, name := range []string{"personnel", "paid", "stdin"} {
		assert.NotNil(t, checkoutCmd.Flags().Lookup(name), "flag --%s", name)
	}
}

func TestSyncSendFlags(t *testing.T) {
	cmd := NewRootCommand()
	sendCmd, _, err := cmd.Find([]string{"sync", "send"})
	require.NoError(t, err)

	chunkFlag := sendCmd.Flags().Lookup("chunk-size")
	require.NotNil(t, chunkFlag)
	assert.Equal(t, "0", chunkFlag.DefValue)
	assert.NotNil(t, sendCmd.Flags().Lookup("png-dir"))
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}
