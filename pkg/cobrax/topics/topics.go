// Package topics provides a topic-based help system for Cobra CLIs.
// Topics are text or markdown files carried in an fs.FS (usually
// embedded in the binary) and served through an extended help command,
// making the CLI self-documenting.
package topics

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// Topic is one help topic
type Topic struct {
	Name    string
	Ext     string
	Content string
}

// Manager holds the loaded topics and the help plumbing
type Manager struct {
	topics       map[string]*Topic
	originalHelp func(*cobra.Command, []string)
	extensions   []string
	renderer     Renderer
}

// Options configures the Manager
type Options struct {
	// Extensions lists the file extensions treated as topics.
	// Defaults to .txt and .md.
	Extensions []string

	// Renderer formats topic content. Defaults to PlainRenderer.
	Renderer Renderer
}

// New creates a Manager and loads every topic file from fsys
func New(fsys fs.FS, opts Options) (*Manager, error) {
	m := &Manager{
		topics:     make(map[string]*Topic),
		extensions: opts.Extensions,
		renderer:   opts.Renderer,
	}
	if len(m.extensions) == 0 {
		m.extensions = []string{".txt", ".md"}
	}
	if m.renderer == nil {
		m.renderer = &PlainRenderer{}
	}

	if err := m.load(fsys); err != nil {
		return nil, fmt.Errorf("failed to load help topics: %w", err)
	}
	return m, nil
}

func (m *Manager) load(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		supported := false
		for _, validExt := range m.extensions {
			if ext == validExt {
				supported = true
				break
			}
		}
		if !supported {
			return nil
		}

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}

		name := strings.TrimSuffix(filepath.Base(path), ext)
		m.topics[name] = &Topic{Name: name, Ext: ext, Content: string(content)}
		return nil
	})
}

// Get retrieves a topic by name. Flag-style lookups ("--force") also
// resolve against an "option-" prefixed topic file.
func (m *Manager) Get(name string) (*Topic, bool) {
	name = strings.TrimPrefix(name, "--")
	name = strings.TrimPrefix(name, "-")

	if topic, exists := m.topics[name]; exists {
		return topic, true
	}
	topic, exists := m.topics["option-"+name]
	return topic, exists
}

// List returns all topic names
func (m *Manager) List() []string {
	names := make([]string, 0, len(m.topics))
	for name := range m.topics {
		names = append(names, name)
	}
	return names
}

// Render formats a topic through the configured renderer
func (m *Manager) Render(topic *Topic) string {
	return m.renderer.Render(topic.Content, topic.Ext)
}

// Install wires the topic system into rootCmd: it replaces the help
// command so unknown help arguments are looked up as topics, and adds a
// "help topics" listing.
func Install(rootCmd *cobra.Command, fsys fs.FS, opts Options) error {
	m, err := New(fsys, opts)
	if err != nil {
		return err
	}

	m.originalHelp = rootCmd.HelpFunc()

	helpCmd := &cobra.Command{
		Use:   "help [command or topic]",
		Short: "Help about any command or topic",
		Long: `Help provides help for any command or topic in the application.
Simply type ` + rootCmd.Name() + ` help [path to command or topic] for full details.

To see all available help topics:
  ` + rootCmd.Name() + ` help topics`,
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			completions := []string{"topics"}
			for _, c := range rootCmd.Commands() {
				if !c.Hidden {
					completions = append(completions, c.Name())
				}
			}
			completions = append(completions, m.List()...)
			return completions, cobra.ShellCompDirectiveNoFileComp
		},
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				m.originalHelp(rootCmd, []string{})
				return
			}

			if args[0] == "topics" {
				fmt.Print(m.renderTopicList(rootCmd.Name()))
				return
			}

			if topic, exists := m.Get(args[0]); exists {
				fmt.Print(m.Render(topic))
				return
			}

			m.originalHelp(rootCmd, args)
		},
	}

	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "help" {
			rootCmd.RemoveCommand(cmd)
			break
		}
	}
	rootCmd.AddCommand(helpCmd)

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			if topic, exists := m.Get(args[0]); exists {
				fmt.Print(m.Render(topic))
				return
			}
		}
		m.originalHelp(cmd, args)
	})

	return nil
}

// renderTopicList builds the "help topics" listing
func (m *Manager) renderTopicList(appName string) string {
	names := m.List()
	if len(names) == 0 {
		return "No help topics available.\n"
	}
	sort.Strings(names)

	var options []string
	var general []string
	for _, name := range names {
		if strings.HasPrefix(name, "option-") {
			options = append(options, strings.TrimPrefix(name, "option-"))
		} else {
			general = append(general, name)
		}
	}

	var b strings.Builder
	b.WriteString("Available help topics:\n")
	if len(general) > 0 {
		b.WriteString("\nGeneral topics:\n")
		for _, name := range general {
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}
	if len(options) > 0 {
		b.WriteString("\nOption topics:\n")
		for _, name := range options {
			fmt.Fprintf(&b, "  --%s\n", name)
		}
	}
	fmt.Fprintf(&b, "\nUse '%s help <topic>' to read about a specific topic.\n", appName)
	return b.String()
}
