package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func names(defs []Command) []string {
	out := make([]string, 0, len(defs))
	for _, c := range defs {
		out = append(out, c.Definition().Name)
	}
	return out
}

func TestAllCommandsHidesAnonymousVariants(t *testing.T) {
	shown := names(AllCommands(false))
	assert.Contains(t, shown, HiddenMsg)
	assert.Contains(t, shown, HiddenTalk)

	hidden := names(AllCommands(true))
	assert.NotContains(t, hidden, HiddenMsg)
	assert.NotContains(t, hidden, HiddenTalk)
	assert.Len(t, hidden, len(shown)-2)
}

func TestCommandNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, def := range GetCommandDefinitions(false) {
		assert.False(t, seen[def.Name], "duplicate command %s", def.Name)
		seen[def.Name] = true
		assert.NotEmpty(t, def.Description)
	}
}

func TestBypassesBlock(t *testing.T) {
	for _, name := range []string{Block, Unblock, Blacklist, Unblacklist, ConfigDefault, ConfigMax, ConfigDisplay} {
		assert.True(t, BypassesBlock(name), name)
	}
	for _, name := range []string{Msg, HiddenMsg, Talk, HiddenTalk, QuotaReset, QuotaGive, QuotaSetLimit, Ping} {
		assert.False(t, BypassesBlock(name), name)
	}
}
