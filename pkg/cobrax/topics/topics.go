// Package topics adds a topic-based help system to a Cobra application.
// Topics are markdown or text files carried in an fs.FS (usually
// embedded in the binary); `morphd help <topic>` renders them alongside
// the regular command help.
package topics

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// Topic is one loaded help document.
type Topic struct {
	Name    string
	Format  string
	Content string
}

// Manager holds the scanned topics and the renderer used to display them.
type Manager struct {
	topics       map[string]*Topic
	renderer     Renderer
	originalHelp func(*cobra.Command, []string)
}

// NewManager scans fsys for .md and .txt topics. The topic name is the
// filename without extension.
func NewManager(fsys fs.FS, renderer Renderer) (*Manager, error) {
	if renderer == nil {
		renderer = &PlainRenderer{}
	}
	m := &Manager{
		topics:   make(map[string]*Topic),
		renderer: renderer,
	}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := path.Ext(p)
		if ext != ".md" && ext != ".txt" {
			return nil
		}
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(path.Base(p), ext)
		m.topics[name] = &Topic{
			Name:    name,
			Format:  ext,
			Content: string(content),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan help topics: %w", err)
	}
	return m, nil
}

// Get retrieves a topic by name.
func (m *Manager) Get(name string) (*Topic, bool) {
	topic, ok := m.topics[name]
	return topic, ok
}

// List returns all topic names, sorted.
func (m *Manager) List() []string {
	names := make([]string, 0, len(m.topics))
	for name := range m.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render returns a topic formatted for the terminal.
func (m *Manager) Render(topic *Topic) string {
	return m.renderer.Render(topic.Content, topic.Format)
}

// Attach replaces root's help command with one that also resolves
// topics. Unknown names fall back to regular command help.
func (m *Manager) Attach(root *cobra.Command) {
	m.originalHelp = root.HelpFunc()

	helpCmd := &cobra.Command{
		Use:   "help [command or topic]",
		Short: "Help about any command or topic",
		Long: fmt.Sprintf(`Help shows documentation for any command or topic.

To list available topics:
  %s help topics`, root.Name()),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			completions := []string{"topics"}
			for _, c := range root.Commands() {
				if !c.Hidden {
					completions = append(completions, c.Name())
				}
			}
			completions = append(completions, m.List()...)
			return completions, cobra.ShellCompDirectiveNoFileComp
		},
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				m.originalHelp(root, nil)
				return
			}
			if args[0] == "topics" {
				m.printIndex(cmd, root.Name())
				return
			}
			if topic, ok := m.Get(args[0]); ok {
				cmd.Print(m.Render(topic))
				return
			}
			m.originalHelp(root, args)
		},
	}

	for _, cmd := range root.Commands() {
		if cmd.Name() == "help" {
			root.RemoveCommand(cmd)
			break
		}
	}
	root.AddCommand(helpCmd)
}

func (m *Manager) printIndex(cmd *cobra.Command, appName string) {
	names := m.List()
	if len(names) == 0 {
		cmd.Println("No help topics available.")
		return
	}
	cmd.Println("Available help topics:")
	for _, name := range names {
		cmd.Printf("  %s\n", name)
	}
	cmd.Printf("\nUse '%s help <topic>' to read one.\n", appName)
}
