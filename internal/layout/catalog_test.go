package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_HasDefaultLayout(t *testing.T) {
	c := Load()
	l := c.Get(DefaultLayout)
	assert.Equal(t, DefaultLayout, l.Name)
}

func TestCatalog_GetUnknownCoercesToDefault(t *testing.T) {
	c := Load()
	l := c.Get("does-not-exist")
	assert.Equal(t, DefaultLayout, l.Name)
}

func TestCatalog_DescriptionsNonEmpty(t *testing.T) {
	c := Load()
	descs := c.Descriptions()
	require.GreaterOrEqual(t, len(descs), 10, "expected a rich layout catalog")
	for _, d := range descs {
		assert.NotEmpty(t, d.Name)
		assert.NotEmpty(t, d.Description)
	}
}

func TestLayout_MaterializeSubstitutesFields(t *testing.T) {
	c := Load()
	l := c.Get("default")
	out, err := l.Materialize(map[string]string{
		"Headline": "Intro to Graphs",
		"Content":  "A graph is a set of nodes and edges.",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "layout: default")
	assert.Contains(t, out, "Intro to Graphs")
	assert.Contains(t, out, "nodes and edges")
}

func TestLayout_MaterializeMissingFieldBecomesEmpty(t *testing.T) {
	c := Load()
	l := c.Get("cover")
	out, err := l.Materialize(map[string]string{"Title": "Only Title"})
	require.NoError(t, err)
	assert.Contains(t, out, "Only Title")
	assert.NotContains(t, out, "<no value>")
}

func TestLayout_MaterializeTwoColsAllFields(t *testing.T) {
	c := Load()
	l := c.Get("two-cols")
	out, err := l.Materialize(map[string]string{
		"TitleLeft":  "Left Title",
		"Left":       "left body",
		"TitleRight": "Right Title",
		"Right":      "right body",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "::right::")
}
