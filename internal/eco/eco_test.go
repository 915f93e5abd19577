package eco

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/park285/cheese-study/internal/fen"
)

func TestLabelSicilian(t *testing.T) {
	o := Label(fen.StartFEN, []string{"e4", "c5"})
	assert.Equal(t, "B20", o.Code)
	assert.True(t, strings.Contains(o.Title, "Sicilian"), o.Title)
	assert.Equal(t, "B20 "+o.Title, o.String())
}

func TestLabelDeeperLineIsMoreSpecific(t *testing.T) {
	short := Label(fen.StartFEN, []string{"e4", "c5"})
	long := Label(fen.StartFEN, []string{"e4", "c5", "Nf3", "d6", "d4", "cxd4", "Nxd4", "Nf6", "Nc3", "a6"})
	assert.False(t, long.IsZero())
	assert.NotEqual(t, short.Code, long.Code)
}

func TestLabelEmptyCases(t *testing.T) {
	assert.True(t, Label(fen.StartFEN, nil).IsZero())
	assert.True(t, Label("8/8/8/3k4/8/4K3/3P4/8 w - - 0 1", []string{"Ke4"}).IsZero())
	assert.True(t, Label(fen.StartFEN, []string{"e4", "Qxh7"}).IsZero())
	assert.Equal(t, "", Opening{}.String())
}
