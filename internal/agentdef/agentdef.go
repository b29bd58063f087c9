// Package agentdef loads agent definitions. A definition is a markdown file
// whose YAML frontmatter names the agent, its model profile and its tools,
// and whose body is the system prompt.
package agentdef

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Logical agent names.
const (
	Strategist = "strategist"
	Writer     = "writer"
	Cadence    = "cadenceAgent"
	Finalizer  = "campaignGenerator"
	Crafter    = "crafter"
)

//go:embed defaults/*.md
var defaultFS embed.FS

// Definition is one loaded agent definition.
type Definition struct {
	// From frontmatter
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Profile     string   `yaml:"profile"`
	Tools       []string `yaml:"tools,omitempty"`

	// From content
	Prompt string `yaml:"-"`

	// Location; empty for embedded definitions
	Path string `yaml:"-"`
}

// Set maps logical names to definitions.
type Set map[string]*Definition

// Get returns a definition by name.
func (s Set) Get(name string) (*Definition, error) {
	d, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("agent %q not defined", name)
	}
	return d, nil
}

// Names returns the defined names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse parses a definition file.
func Parse(content string) (*Definition, error) {
	frontmatter, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, err
	}

	def := &Definition{}
	if err := yaml.Unmarshal([]byte(frontmatter), def); err != nil {
		return nil, fmt.Errorf("invalid frontmatter: %w", err)
	}
	if def.Name == "" {
		return nil, fmt.Errorf("missing required field: name")
	}
	if err := validateName(def.Name); err != nil {
		return nil, err
	}
	if def.Profile == "" {
		def.Profile = def.Name
	}

	def.Prompt = strings.TrimSpace(body)
	if def.Prompt == "" {
		return nil, fmt.Errorf("agent %q has an empty prompt", def.Name)
	}
	return def, nil
}

// Load reads one definition file. The name must match the file name.
func Load(path string) (*Definition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent definition: %w", err)
	}
	def, err := Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if base := strings.TrimSuffix(filepath.Base(path), ".md"); def.Name != base {
		return nil, fmt.Errorf("agent name %q does not match file name %q", def.Name, base)
	}
	def.Path = path
	return def, nil
}

// Defaults returns the embedded definitions.
func Defaults() (Set, error) {
	set := make(Set)
	entries, err := fs.ReadDir(defaultFS, "defaults")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		content, err := defaultFS.ReadFile("defaults/" + e.Name())
		if err != nil {
			return nil, err
		}
		def, err := Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("embedded %s: %w", e.Name(), err)
		}
		set[def.Name] = def
	}
	return set, nil
}

// LoadSet returns the embedded definitions overridden by any *.md files in
// dir. An empty dir returns the defaults.
func LoadSet(dir string) (Set, error) {
	set, err := Defaults()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return set, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, err
	}
	for _, path := range matches {
		def, err := Load(path)
		if err != nil {
			return nil, err
		}
		set[def.Name] = def
	}
	return set, nil
}

// splitFrontmatter extracts YAML frontmatter from markdown.
func splitFrontmatter(content string) (frontmatter, body string, err error) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", "", fmt.Errorf("missing frontmatter delimiter")
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatter = strings.Join(lines[1:i], "\n")
			body = strings.Join(lines[i+1:], "\n")
			return frontmatter, body, nil
		}
	}
	return "", "", fmt.Errorf("unclosed frontmatter")
}

// validateName accepts letters, digits and hyphens, starting with a letter.
func validateName(name string) error {
	if len(name) > 64 {
		return fmt.Errorf("name must be 1-64 characters")
	}
	for i, r := range name {
		letter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if i == 0 && !letter {
			return fmt.Errorf("name must start with a letter")
		}
		if !letter && !(r >= '0' && r <= '9') && r != '-' {
			return fmt.Errorf("name can only contain letters, numbers, and hyphens")
		}
	}
	return nil
}
