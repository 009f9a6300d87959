package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedStylesLoad(t *testing.T) {
	// init() already parsed the embedded document
	for _, name := range []string{"Header", "Success", "Error", "Muted", "Vault"} {
		assert.Contains(t, registry, name, "missing style %s", name)
	}
}

func TestGetStyleUnknown(t *testing.T) {
	// Unknown names return a usable zero style instead of failing
	style := GetStyle("NoSuchStyle")
	assert.Equal(t, "hello", style.Render("hello"))
}

func TestLoadFromData(t *testing.T) {
	doc := []byte(`
colors:
  c1:
    light: "#000000"
    dark: "#FFFFFF"
styles:
  Custom:
    bold: true
    foreground: c1
`)
	require.NoError(t, LoadFromData(doc))
	t.Cleanup(func() { require.NoError(t, LoadFromData(embeddedStyles)) })

	assert.Contains(t, registry, "Custom")
	assert.True(t, GetStyle("Custom").GetBold())
}

func TestLoadFromDataInvalid(t *testing.T) {
	assert.Error(t, LoadFromData([]byte("styles: [not a map")))
}

func TestMergeStyles(t *testing.T) {
	merged := MergeStyles("Bold", "Muted")
	assert.True(t, merged.GetBold())
}
