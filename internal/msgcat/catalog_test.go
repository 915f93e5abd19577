package msgcat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedDefaults(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)

	s, err := c.Render("drill.main", map[string]any{"Color": "Black"})
	require.NoError(t, err)
	assert.Equal(t, "Black to play. Find the move.", s)

	s, err = c.Render("journal.header", map[string]any{"White": "Tal", "Black": "Botvinnik", "Date": "", "Result": "1-0"})
	require.NoError(t, err)
	assert.Equal(t, "Tal - Botvinnik (1-0)", s)

	assert.Contains(t, c.Keys(), "trainer.complete")
}

func TestRenderErrors(t *testing.T) {
	c := Default()
	_, err := c.Render("no.such.key", nil)
	assert.ErrorIs(t, err, ErrUnknownKey)

	_, err = c.Render("drill.main", map[string]any{})
	assert.Error(t, err, "missing template field")

	assert.Equal(t, "no.such.key", c.Text("no.such.key", nil))
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("drill:\n  pre: \"Look closely.\"\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	c, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, "Look closely.", c.Text("drill.pre", nil))
	assert.Equal(t, "Waiting for the reply...", c.Text("trainer.waiting", nil))
}

func TestOverrideDirRejectsDuplicatesAndNonStrings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("drill:\n  pre: one\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("drill:\n  pre: two\n"), 0o600))
	_, err := New(dir)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("drill:\n  pre: 3\n"), 0o600))
	_, err = New(dir)
	assert.ErrorContains(t, err, "want a string or a mapping")

	_, err = New(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
