package templates

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"report/greeting.tmpl": {Data: []byte("Hello, {{.Name}}!")},
		"report/ignored.txt":   {Data: []byte("not a template")},
	}

	reg, err := NewRegistryFromFS(fsys)
	require.NoError(t, err)

	assert.Equal(t, []string{"report/greeting"}, reg.List())

	out, err := reg.Render("report/greeting", map[string]string{"Name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada!", out)
}

func TestRegistry_MissingTemplate(t *testing.T) {
	reg, err := NewRegistryFromFS(fstest.MapFS{})
	require.NoError(t, err)

	_, err = reg.Render("report/nope", nil)
	assert.Error(t, err)
}

func TestEmbeddedReportTemplate(t *testing.T) {
	reg := Get()

	tmpl, err := reg.GetTemplate("report/analysis")
	require.NoError(t, err)
	assert.Contains(t, tmpl.Content, "## 7. Risks & Data Gaps")
}
