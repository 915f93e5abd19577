package drill

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(ds []Drill) []string {
	return lo.Map(ds, func(d Drill, _ int) string { return d.ID })
}

func TestDefaultCatalogLoads(t *testing.T) {
	cat, err := DefaultCatalog()
	require.NoError(t, err)
	assert.Equal(t, []string{"sicilian", "french", "italian"}, ids(cat.Drills()))

	d, ok := cat.Get("sicilian")
	require.True(t, ok)
	require.Len(t, d.Frames, 2)
	assert.Equal(t, "C7C5", d.Frames[0].Expected.String())
	assert.Equal(t, "D7D6", d.Frames[1].Expected.String())

	_, ok = cat.Get("missing")
	assert.False(t, ok)
}

func TestFilterOrOfAndGroups(t *testing.T) {
	cat, err := DefaultCatalog()
	require.NoError(t, err)

	assert.Equal(t, []string{"sicilian", "french", "italian"}, ids(cat.Filter(nil)))
	assert.Equal(t, []string{"sicilian", "french"}, ids(cat.Filter(ParseFilter("black"))))
	assert.Equal(t, []string{"french"}, ids(cat.Filter(ParseFilter("black+french"))))
	assert.Equal(t, []string{"french", "italian"}, ids(cat.Filter(ParseFilter("Black + French, white"))))
	assert.Empty(t, cat.Filter(ParseFilter("endgame")))
}

func TestParseCatalogRejectsBadFrames(t *testing.T) {
	cases := map[string]string{
		"bad fen": `
drills:
  - id: x
    frames:
      - {fen0: "8/8/8", fen1: "8/8/8/8/8/8/8/8 b - - 0 1", fen2: "8/8/8/8/8/8/8/8 w - - 0 1", active_color: b, from: A1, to: A2}`,
		"color mismatch": `
drills:
  - id: x
    frames:
      - {fen0: "8/8/8/8/8/8/8/8 w - - 0 1", fen1: "8/8/8/8/8/8/8/8 w - - 0 1", fen2: "8/8/8/8/8/8/8/8 b - - 0 1", active_color: b, from: A1, to: A2}`,
		"bad square": `
drills:
  - id: x
    frames:
      - {fen0: "8/8/8/8/8/8/8/8 w - - 0 1", fen1: "8/8/8/8/8/8/8/8 b - - 0 1", fen2: "8/8/8/8/8/8/8/8 w - - 0 1", active_color: b, from: Z9, to: A2}`,
		"duplicate id": `
drills:
  - id: x
    frames:
      - {fen0: "8/8/8/8/8/8/8/8 w - - 0 1", fen1: "8/8/8/8/8/8/8/8 b - - 0 1", fen2: "8/8/8/8/8/8/8/8 w - - 0 1", active_color: b, from: A1, to: A2}
  - id: x
    frames:
      - {fen0: "8/8/8/8/8/8/8/8 w - - 0 1", fen1: "8/8/8/8/8/8/8/8 b - - 0 1", fen2: "8/8/8/8/8/8/8/8 w - - 0 1", active_color: b, from: A1, to: A2}`,
		"no frames": `
drills:
  - id: x`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drills.yaml")
	raw := `
drills:
  - id: kp
    name: King and pawn
    tags: [Endgame, endgame, " pawn "]
    frames:
      - fen0: "8/8/8/3k4/8/4K3/3P4/8 w - - 0 1"
        fen1: "8/8/8/3k4/8/4K3/3P4/8 w - - 0 1"
        fen2: "8/8/8/3k4/4K3/8/3P4/8 b - - 1 1"
        active_color: w
        from: E3
        to: E4
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	d, ok := cat.Get("kp")
	require.True(t, ok)
	assert.Equal(t, []string{"endgame", "pawn"}, d.Tags)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
