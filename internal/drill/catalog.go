package drill

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	yaml "gopkg.in/yaml.v3"

	"github.com/park285/cheese-study/internal/fen"
)

//go:embed drills.yaml
var defaultCatalog []byte

type catalogFile struct {
	Drills []drillEntry `yaml:"drills"`
}

type drillEntry struct {
	ID     string       `yaml:"id"`
	Name   string       `yaml:"name"`
	Tags   []string     `yaml:"tags"`
	Frames []frameEntry `yaml:"frames"`
}

type frameEntry struct {
	Lead            string `yaml:"fen0"`
	Question        string `yaml:"fen1"`
	Answer          string `yaml:"fen2"`
	ActiveColor     string `yaml:"active_color"`
	From            string `yaml:"from"`
	To              string `yaml:"to"`
	QuestionComment string `yaml:"question_comment"`
	AnswerComment   string `yaml:"answer_comment"`
}

// Catalog is an ordered set of drills.
type Catalog struct {
	drills []Drill
}

// DefaultCatalog returns the built-in drills.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a YAML catalog from path. An empty path yields the
// built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drill catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog validates every frame: all three FENs must parse, the side to
// move must match the question position, and the answer squares must be real.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse drill catalog: %w", err)
	}
	seen := map[string]bool{}
	out := &Catalog{}
	for i, e := range file.Drills {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return nil, fmt.Errorf("drill #%d: missing id", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate drill id %q", id)
		}
		seen[id] = true
		if len(e.Frames) == 0 {
			return nil, fmt.Errorf("drill %s: %w", id, ErrNoFrames)
		}
		d := Drill{
			ID:   id,
			Name: strings.TrimSpace(e.Name),
			Tags: lo.Uniq(lo.FilterMap(e.Tags, func(t string, _ int) (string, bool) {
				t = strings.ToLower(strings.TrimSpace(t))
				return t, t != ""
			})),
		}
		for j, fe := range e.Frames {
			f, err := fe.toFrame()
			if err != nil {
				return nil, fmt.Errorf("drill %s frame %d: %w", id, j, err)
			}
			d.Frames = append(d.Frames, f)
		}
		out.drills = append(out.drills, d)
	}
	return out, nil
}

func (fe frameEntry) toFrame() (Frame, error) {
	for _, s := range []string{fe.Lead, fe.Question, fe.Answer} {
		if _, err := fen.ParsePosition(s); err != nil {
			return Frame{}, err
		}
	}
	color, err := fen.ParseColor(fe.ActiveColor)
	if err != nil {
		return Frame{}, err
	}
	if active, _ := fen.ActiveColor(fe.Question); active != fen.NoColor && active != color {
		return Frame{}, fmt.Errorf("active_color %s does not match question position", color)
	}
	from, err := fen.ParseSquare(fe.From)
	if err != nil {
		return Frame{}, err
	}
	to, err := fen.ParseSquare(fe.To)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Lead:            fe.Lead,
		Question:        fe.Question,
		Answer:          fe.Answer,
		ActiveColor:     color,
		Expected:        Move{From: from, To: to},
		QuestionComment: strings.TrimSpace(fe.QuestionComment),
		AnswerComment:   strings.TrimSpace(fe.AnswerComment),
	}, nil
}

// Drills returns every drill in catalog order.
func (c *Catalog) Drills() []Drill {
	return append([]Drill(nil), c.drills...)
}

// Get looks a drill up by id.
func (c *Catalog) Get(id string) (Drill, bool) {
	return lo.Find(c.drills, func(d Drill) bool { return d.ID == id })
}

// Filter returns the drills matching any group, where a drill matches a group
// when it carries every tag in it. No groups matches everything.
func (c *Catalog) Filter(groups [][]string) []Drill {
	groups = lo.Filter(groups, func(g []string, _ int) bool { return len(g) > 0 })
	if len(groups) == 0 {
		return c.Drills()
	}
	return lo.Filter(c.drills, func(d Drill, _ int) bool {
		return lo.SomeBy(groups, func(g []string) bool {
			return lo.EveryBy(g, func(tag string) bool {
				return lo.Contains(d.Tags, strings.ToLower(strings.TrimSpace(tag)))
			})
		})
	})
}

// ParseFilter reads "a+b,c" as (a AND b) OR c.
func ParseFilter(expr string) [][]string {
	var groups [][]string
	for _, part := range strings.Split(expr, ",") {
		tags := lo.FilterMap(strings.Split(part, "+"), func(t string, _ int) (string, bool) {
			t = strings.TrimSpace(t)
			return t, t != ""
		})
		if len(tags) > 0 {
			groups = append(groups, tags)
		}
	}
	return groups
}
