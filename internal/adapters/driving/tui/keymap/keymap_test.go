package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()
	require.NotNil(t, km)

	tests := []struct {
		name    string
		binding key.Binding
		keys    []string
	}{
		{"quit", km.Quit, []string{"ctrl+c"}},
		{"help", km.Help, []string{"?"}},
		{"back", km.Back, []string{"esc"}},
		{"submit", km.Submit, []string{"enter"}},
		{"up", km.Up, []string{"up", "k"}},
		{"down", km.Down, []string{"down", "j"}},
		{"select", km.Select, []string{"enter"}},
		{"new search", km.NewSearch, []string{"n"}},
		{"rerank", km.Rerank, []string{"r"}},
		{"clear", km.Clear, []string{"ctrl+l"}},
		{"toggle panels", km.TogglePanels, []string{"tab"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.keys, tt.binding.Keys())
			assert.NotEmpty(t, tt.binding.Help().Desc)
		})
	}
}

func TestHelpSets(t *testing.T) {
	km := DefaultKeyMap()

	assert.Len(t, km.ShortHelp(), 2)
	assert.Contains(t, km.ChatHelp(), km.Clear)
	assert.Contains(t, km.ChatHelp(), km.TogglePanels)
	assert.Contains(t, km.ResultsHelp(), km.Rerank)

	full := km.FullHelp()
	require.Len(t, full, 3)
	for _, column := range full {
		assert.NotEmpty(t, column)
	}
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	assert.True(t, Matches("ctrl+l", km.Clear))
	assert.True(t, Matches("k", km.Up))
	assert.False(t, Matches("q", km.Quit))
	assert.False(t, Matches("", km.Submit))
}

func TestMatches_DisabledBinding(t *testing.T) {
	km := DefaultKeyMap()
	km.Rerank.SetEnabled(false)

	assert.False(t, Matches("r", km.Rerank))
}

func TestFullHelp_CoversEveryBinding(t *testing.T) {
	km := DefaultKeyMap()

	var descs []string
	for _, column := range km.FullHelp() {
		for _, b := range column {
			descs = append(descs, b.Help().Desc)
		}
	}

	assert.ElementsMatch(t, []string{
		"send", "sources", "clear",
		"up", "down", "expand", "new search", "rerank",
		"back", "help", "quit",
	}, descs)
}
