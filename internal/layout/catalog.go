// Package layout holds the fixed catalog of sli.dev slide layouts: each
// layout is a frontmatter template plus the schema of fields an LLM call is
// constrained to produce before the template is materialized into Markdown.
package layout

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed layouts.yaml
var catalogYAML []byte

// DefaultLayout is substituted whenever a requested layout name is not in
// the catalog, so a single unrecognized name from the LLM never fails an
// entire slide's materialization.
const DefaultLayout = "default"

// Field describes one placeholder an LLM response must supply for a layout.
type Field struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Layout is one entry of the catalog: a name, a human description (returned
// by Catalog.Descriptions), and a parsed template plus its field schema.
type Layout struct {
	Name        string
	Description string
	Fields      []Field
	tmpl        *template.Template
}

type rawLayout struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Template    string  `yaml:"template"`
	Fields      []Field `yaml:"fields"`
}

type rawCatalog struct {
	Layouts []rawLayout `yaml:"layouts"`
}

// Catalog is the parsed, ready-to-materialize set of layouts.
type Catalog struct {
	byName map[string]*Layout
	order  []string
}

// Load parses the embedded layout catalog. It panics on malformed embedded
// YAML or templates, since the catalog ships inside the binary and a
// failure here means the build itself is broken, not a runtime condition.
func Load() *Catalog {
	var raw rawCatalog
	if err := yaml.Unmarshal(catalogYAML, &raw); err != nil {
		panic(fmt.Sprintf("layout: embedded catalog is invalid YAML: %v", err))
	}

	c := &Catalog{byName: make(map[string]*Layout, len(raw.Layouts))}
	for _, rl := range raw.Layouts {
		tmpl, err := template.New(rl.Name).Option("missingkey=zero").Parse(rl.Template)
		if err != nil {
			panic(fmt.Sprintf("layout: template %q failed to parse: %v", rl.Name, err))
		}
		c.byName[rl.Name] = &Layout{
			Name:        rl.Name,
			Description: rl.Description,
			Fields:      rl.Fields,
			tmpl:        tmpl,
		}
		c.order = append(c.order, rl.Name)
	}
	if _, ok := c.byName[DefaultLayout]; !ok {
		panic("layout: embedded catalog is missing the default layout")
	}
	return c
}

// Descriptions returns every layout's name, description and fields, in
// catalog order; the pipeline's slide-structure prompt lists these names.
func (c *Catalog) Descriptions() []Layout {
	out := make([]Layout, 0, len(c.order))
	for _, name := range c.order {
		l := c.byName[name]
		out = append(out, Layout{Name: l.Name, Description: l.Description, Fields: l.Fields})
	}
	return out
}

// Get resolves name to its Layout, coercing any unknown name to the default
// layout rather than failing the caller.
func (c *Catalog) Get(name string) *Layout {
	if l, ok := c.byName[name]; ok {
		return l
	}
	return c.byName[DefaultLayout]
}

// Materialize renders the layout's template against fields, a map from
// field name to LLM-produced value. Any field named by the schema but
// absent from fields is substituted as an empty string rather than failing
// the render, matching safe-substitution semantics for partially-filled LLM
// output.
func (l *Layout) Materialize(fields map[string]string) (string, error) {
	data := make(map[string]string, len(l.Fields))
	for _, f := range l.Fields {
		data[f.Name] = fields[f.Name]
	}

	var sb strings.Builder
	if err := l.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("layout: materialize %q: %w", l.Name, err)
	}
	return sb.String(), nil
}
