package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// Platform names a supported social media service.
type Platform string

const (
	Instagram Platform = "instagram"
	Facebook  Platform = "facebook"
	Snapchat  Platform = "snapchat"
	Twitter   Platform = "twitter"
)

const optionsPerQuestion = 4

type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

type Question struct {
	ID      string   `json:"id" yaml:"id"`
	Prompt  string   `json:"prompt" yaml:"prompt"`
	Options []Option `json:"options" yaml:"options"`
}

// HasOption reports whether value is one of the question's answer choices.
func (q Question) HasOption(value string) bool {
	for _, o := range q.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// QuestionWeight is the scoring metadata of a weighted question.
type QuestionWeight struct {
	ID                string   `json:"id" yaml:"id"`
	Weight            float64  `json:"weight" yaml:"weight"`
	PositiveResponses []string `json:"positive_responses" yaml:"positive"`
	NegativeResponses []string `json:"negative_responses" yaml:"negative"`
	RiskResponses     []string `json:"risk_responses" yaml:"risk"`
}

func (w QuestionWeight) IsPositive(value string) bool { return contains(w.PositiveResponses, value) }
func (w QuestionWeight) IsNegative(value string) bool { return contains(w.NegativeResponses, value) }
func (w QuestionWeight) IsRisk(value string) bool     { return contains(w.RiskResponses, value) }

func (w QuestionWeight) clone() QuestionWeight {
	w.PositiveResponses = cloneStrings(w.PositiveResponses)
	w.NegativeResponses = cloneStrings(w.NegativeResponses)
	w.RiskResponses = cloneStrings(w.RiskResponses)
	return w
}

type PlatformDefinition struct {
	Name        Platform         `json:"name" yaml:"name"`
	DisplayName string           `json:"display_name" yaml:"display_name"`
	Questions   []Question       `json:"questions" yaml:"questions"`
	Weights     []QuestionWeight `json:"-" yaml:"weights"`
}

// Question looks up a question by id.
func (p PlatformDefinition) Question(id string) (Question, bool) {
	for _, q := range p.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// clone returns a copy that shares no slices with p.
func (p PlatformDefinition) clone() PlatformDefinition {
	out := p
	out.Questions = make([]Question, len(p.Questions))
	for i, q := range p.Questions {
		q.Options = append([]Option(nil), q.Options...)
		out.Questions[i] = q
	}
	out.Weights = cloneWeights(p.Weights)
	return out
}

func cloneWeights(ws []QuestionWeight) []QuestionWeight {
	if ws == nil {
		return nil
	}
	out := make([]QuestionWeight, len(ws))
	for i, w := range ws {
		out[i] = w.clone()
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// Catalog is the immutable set of platform questionnaires. Lookups hand out
// copies, so callers cannot change the definitions once Load returns.
type Catalog struct {
	platforms map[Platform]*PlatformDefinition
	order     []Platform
}

type catalogFile struct {
	Platforms []*PlatformDefinition `yaml:"platforms"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(embeddedCatalog)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Load parses and validates a YAML catalog document.
func Load(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Platforms) == 0 {
		return nil, fmt.Errorf("catalog defines no platforms")
	}

	c := &Catalog{platforms: make(map[Platform]*PlatformDefinition, len(file.Platforms))}
	for _, def := range file.Platforms {
		def.Name = Platform(strings.ToLower(string(def.Name)))
		if _, dup := c.platforms[def.Name]; dup {
			return nil, fmt.Errorf("platform %q defined twice", def.Name)
		}
		if err := validate(def); err != nil {
			return nil, fmt.Errorf("platform %q: %w", def.Name, err)
		}
		c.platforms[def.Name] = def
		c.order = append(c.order, def.Name)
	}
	return c, nil
}

func validate(def *PlatformDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("missing name")
	}
	if def.DisplayName == "" {
		return fmt.Errorf("missing display name")
	}
	if n := len(def.Questions); n < 9 || n > 10 {
		return fmt.Errorf("expected 9-10 questions, got %d", n)
	}

	seen := make(map[string]bool, len(def.Questions))
	for _, q := range def.Questions {
		if q.ID == "" || q.Prompt == "" {
			return fmt.Errorf("question with empty id or prompt")
		}
		if seen[q.ID] {
			return fmt.Errorf("duplicate question id %q", q.ID)
		}
		seen[q.ID] = true
		if len(q.Options) != optionsPerQuestion {
			return fmt.Errorf("question %q has %d options, want %d", q.ID, len(q.Options), optionsPerQuestion)
		}
		values := make(map[string]bool, optionsPerQuestion)
		for _, o := range q.Options {
			if o.Value == "" || o.Label == "" {
				return fmt.Errorf("question %q has an empty option", q.ID)
			}
			if values[o.Value] {
				return fmt.Errorf("question %q repeats option %q", q.ID, o.Value)
			}
			values[o.Value] = true
		}
	}

	weighted := make(map[string]bool, len(def.Weights))
	for _, w := range def.Weights {
		q, ok := def.Question(w.ID)
		if !ok {
			return fmt.Errorf("weight references unknown question %q", w.ID)
		}
		if weighted[w.ID] {
			return fmt.Errorf("question %q weighted twice", w.ID)
		}
		weighted[w.ID] = true
		if w.Weight <= 0 || w.Weight > 1 {
			return fmt.Errorf("question %q weight %v outside (0,1]", w.ID, w.Weight)
		}
		for _, set := range [][]string{w.PositiveResponses, w.NegativeResponses, w.RiskResponses} {
			for _, v := range set {
				if !q.HasOption(v) {
					return fmt.Errorf("question %q weight references unknown option %q", w.ID, v)
				}
			}
		}
	}
	return nil
}

func (c *Catalog) lookup(name string) (*PlatformDefinition, bool) {
	def, ok := c.platforms[Platform(strings.ToLower(strings.TrimSpace(name)))]
	return def, ok
}

// Platform returns a copy of the definition for name, matched
// case-insensitively.
func (c *Catalog) Platform(name string) (PlatformDefinition, bool) {
	def, ok := c.lookup(name)
	if !ok {
		return PlatformDefinition{}, false
	}
	return def.clone(), true
}

// Platforms returns copies of the definitions in catalog order.
func (c *Catalog) Platforms() []PlatformDefinition {
	out := make([]PlatformDefinition, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.platforms[name].clone())
	}
	return out
}

// Names returns the supported platform names sorted alphabetically.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.order))
	for _, p := range c.order {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return names
}

// Weights returns the weighted questions for name, or nil for an unknown platform.
func (c *Catalog) Weights(name string) []QuestionWeight {
	if def, ok := c.lookup(name); ok {
		return cloneWeights(def.Weights)
	}
	return nil
}

// DisplayName returns a human readable platform name. Unknown platforms are
// capitalised as given; an empty name reads as "social media".
func (c *Catalog) DisplayName(name string) string {
	if def, ok := c.lookup(name); ok {
		return def.DisplayName
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "social media"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
