package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Builtin(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	p, err := r.Get("dominos")
	require.NoError(t, err)
	assert.Equal(t, "Q Concierge", p.BotName)
	assert.Equal(t, "Hello, Buenos Dias. Thank you for calling Dominos. How can I assist you today?", p.Greeting)
	assert.Contains(t, p.Instructions, "Bilingual English/Spanish")
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clinic.yaml"), []byte(`
name: clinic
voice: sage
greeting: "Thanks for calling the clinic."
instructions: |
  You book appointments.
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dominos.yaml"), []byte(`
name: dominos
bot_name: Pizza Line
instructions: Take pizza orders.
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	r, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"clinic", "dominos"}, r.Names())

	clinic, err := r.Get("clinic")
	require.NoError(t, err)
	assert.Equal(t, DefaultBotName, clinic.BotName)
	assert.Equal(t, "sage", clinic.Voice)

	dominos, err := r.Get("dominos")
	require.NoError(t, err)
	assert.Equal(t, "Pizza Line", dominos.BotName)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	_, err = r.Get("pirate")
	assert.ErrorIs(t, err, ErrUnknownPersona)
	assert.Contains(t, err.Error(), "dominos")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "missing name", doc: "instructions: hi"},
		{name: "missing instructions", doc: "name: empty"},
		{name: "unknown field", doc: "name: x\ninstructions: hi\ntemperature: 2"},
		{name: "not yaml", doc: "name: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidPersona)
		})
	}
}

func TestLoad_BadDirectoryFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken"), 0o600))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrInvalidPersona)
}
