package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.NotNil(t, c)

	assert.Equal(t, []string{"facebook", "instagram", "snapchat", "twitter"}, c.Names())

	counts := map[Platform]int{Instagram: 9, Facebook: 10, Snapchat: 10, Twitter: 10}
	for _, def := range c.Platforms() {
		assert.Equal(t, counts[def.Name], len(def.Questions), def.Name)
		assert.Len(t, def.Weights, 5, def.Name)
		for _, q := range def.Questions {
			assert.Len(t, q.Options, 4, q.ID)
		}
	}
}

func TestPlatformLookupIsCaseInsensitive(t *testing.T) {
	c := Default()

	def, ok := c.Platform(" Instagram ")
	require.True(t, ok)
	assert.Equal(t, Instagram, def.Name)
	assert.Equal(t, "current_experience", def.Questions[0].ID)

	_, ok = c.Platform("myspace")
	assert.False(t, ok)
	assert.Nil(t, c.Weights("myspace"))
}

func TestLookupsReturnCopies(t *testing.T) {
	c := Default()

	def, ok := c.Platform("instagram")
	require.True(t, ok)
	def.DisplayName = "Changed"
	def.Questions[0].ID = "changed"
	def.Questions[0].Options[0].Value = "changed"
	def.Weights[0].Weight = 0.01
	def.Weights[0].RiskResponses[0] = "changed"

	for _, p := range c.Platforms() {
		p.Questions[0].Prompt = ""
		p.Weights[0].PositiveResponses = nil
	}
	w := c.Weights("instagram")
	w[0].Weight = 0.02
	w[1].NegativeResponses[0] = "changed"

	again, ok := c.Platform("instagram")
	require.True(t, ok)
	assert.Equal(t, "Instagram", again.DisplayName)
	assert.Equal(t, "current_experience", again.Questions[0].ID)
	assert.NotEqual(t, "changed", again.Questions[0].Options[0].Value)
	assert.NotEmpty(t, again.Questions[0].Prompt)
	assert.NotEqual(t, 0.01, again.Weights[0].Weight)
	assert.NotEqual(t, 0.02, again.Weights[0].Weight)
	assert.NotContains(t, again.Weights[0].RiskResponses, "changed")
	assert.NotContains(t, again.Weights[1].NegativeResponses, "changed")
	assert.NoError(t, validate(&again))
}

func TestDisplayName(t *testing.T) {
	c := Default()
	assert.Equal(t, "Twitter/X", c.DisplayName("twitter"))
	assert.Equal(t, "Snapchat", c.DisplayName("SNAPCHAT"))
	assert.Equal(t, "Myspace", c.DisplayName("myspace"))
	assert.Equal(t, "social media", c.DisplayName(""))
}

func TestWeightSets(t *testing.T) {
	weights := Default().Weights("instagram")
	require.NotEmpty(t, weights)

	w := weights[0]
	assert.Equal(t, "current_experience", w.ID)
	assert.InDelta(t, 0.25, w.Weight, 1e-9)
	assert.True(t, w.IsPositive("uplifting"))
	assert.True(t, w.IsNegative("overwhelming"))
	assert.True(t, w.IsRisk("balance"))
	assert.False(t, w.IsRisk("mixed"))
}

func TestLoadRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"malformed":     "platforms: [",
		"empty":         "platforms: []",
		"few questions": `platforms: [{name: "x", display_name: "X", questions: [{id: "a", prompt: "p", options: [{value: "1", label: "1"}, {value: "2", label: "2"}, {value: "3", label: "3"}, {value: "4", label: "4"}]}]}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsUnknownWeightReference(t *testing.T) {
	def := validDefinition()
	def.Weights = []QuestionWeight{{ID: "nope", Weight: 0.5}}
	assert.ErrorContains(t, validate(def), "unknown question")

	def = validDefinition()
	def.Weights = []QuestionWeight{{ID: "q0", Weight: 0.5, RiskResponses: []string{"zzz"}}}
	assert.ErrorContains(t, validate(def), "unknown option")

	def = validDefinition()
	def.Weights = []QuestionWeight{{ID: "q0", Weight: 1.5}}
	assert.ErrorContains(t, validate(def), "outside (0,1]")
}

func TestLoadRejectsWrongOptionCount(t *testing.T) {
	def := validDefinition()
	def.Questions[3].Options = def.Questions[3].Options[:3]
	assert.ErrorContains(t, validate(def), "has 3 options")

	def = validDefinition()
	def.Questions[1].ID = "q0"
	assert.ErrorContains(t, validate(def), "duplicate question id")
}

func validDefinition() *PlatformDefinition {
	def := &PlatformDefinition{Name: "test", DisplayName: "Test"}
	for i := 0; i < 9; i++ {
		def.Questions = append(def.Questions, Question{
			ID:     "q" + string(rune('0'+i)),
			Prompt: "prompt",
			Options: []Option{
				{Value: "a", Label: "A"}, {Value: "b", Label: "B"},
				{Value: "c", Label: "C"}, {Value: "d", Label: "D"},
			},
		})
	}
	return def
}
