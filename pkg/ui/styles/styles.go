// Package styles maps semantic names to lipgloss styles, loaded from an
// embedded YAML definition so themes stay editable without touching code.
// Colors are adaptive and adjust to light and dark terminals.
package styles

import (
	_ "embed"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// ColorDef is an adaptive color definition in YAML
type ColorDef struct {
	Light string `yaml:"light"`
	Dark  string `yaml:"dark"`
}

// StyleDef is a style definition in YAML
type StyleDef struct {
	Bold        bool   `yaml:"bold,omitempty"`
	Italic      bool   `yaml:"italic,omitempty"`
	Underline   bool   `yaml:"underline,omitempty"`
	Foreground  string `yaml:"foreground,omitempty"`
	Background  string `yaml:"background,omitempty"`
	Width       int    `yaml:"width,omitempty"`
	MarginLeft  int    `yaml:"marginLeft,omitempty"`
	PaddingLeft int    `yaml:"paddingLeft,omitempty"`
}

// Config is the full styles document
type Config struct {
	Colors map[string]ColorDef `yaml:"colors"`
	Styles map[string]StyleDef `yaml:"styles"`
}

var (
	registry map[string]lipgloss.Style
	colors   map[string]lipgloss.AdaptiveColor
)

//go:embed styles.yaml
var embeddedStyles []byte

func init() {
	if err := LoadFromData(embeddedStyles); err != nil {
		initDefaults()
	}
}

// initDefaults keeps the program usable when the embedded styles fail to
// parse: every known name maps to an unstyled lipgloss.Style.
func initDefaults() {
	colors = make(map[string]lipgloss.AdaptiveColor)
	registry = make(map[string]lipgloss.Style)

	plain := lipgloss.NewStyle()
	for _, name := range []string{
		"Header", "Success", "Error", "Warning", "Info",
		"Bold", "Muted", "FilePath", "Link", "Vault", "Tunnel", "Plug",
	} {
		registry[name] = plain
	}
}

// LoadFromData parses a styles document and replaces the registry
func LoadFromData(data []byte) error {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse styles data: %w", err)
	}

	colors = make(map[string]lipgloss.AdaptiveColor)
	for name, def := range config.Colors {
		colors[name] = lipgloss.AdaptiveColor{Light: def.Light, Dark: def.Dark}
	}

	registry = make(map[string]lipgloss.Style)
	for name, def := range config.Styles {
		registry[name] = buildStyle(def)
	}
	return nil
}

func buildStyle(def StyleDef) lipgloss.Style {
	style := lipgloss.NewStyle()

	if def.Bold {
		style = style.Bold(true)
	}
	if def.Italic {
		style = style.Italic(true)
	}
	if def.Underline {
		style = style.Underline(true)
	}

	if def.Foreground != "" {
		if color, ok := colors[def.Foreground]; ok {
			style = style.Foreground(color)
		}
	}
	if def.Background != "" {
		if color, ok := colors[def.Background]; ok {
			style = style.Background(color)
		}
	}

	if def.Width > 0 {
		style = style.Width(def.Width)
	}
	if def.MarginLeft > 0 {
		style = style.MarginLeft(def.MarginLeft)
	}
	if def.PaddingLeft > 0 {
		style = style.PaddingLeft(def.PaddingLeft)
	}

	return style
}

// GetStyle retrieves a style by name; unknown names get an unstyled default
func GetStyle(name string) lipgloss.Style {
	if style, ok := registry[name]; ok {
		return style
	}
	return lipgloss.NewStyle()
}

// MergeStyles combines multiple named styles
func MergeStyles(names ...string) lipgloss.Style {
	result := lipgloss.NewStyle()
	for _, name := range names {
		result = result.Inherit(GetStyle(name))
	}
	return result
}
