package persona

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed personas/*.yaml
var builtin embed.FS

const DefaultBotName = "Q Concierge"

var (
	ErrUnknownPersona = errors.New("unknown persona")
	ErrInvalidPersona = errors.New("invalid persona")
)

// Persona is the prompt data for one agent identity
type Persona struct {
	Name         string `yaml:"name"`
	BotName      string `yaml:"bot_name"`
	Voice        string `yaml:"voice"`
	GeminiVoice  string `yaml:"gemini_voice"`
	Language     string `yaml:"language"`
	Greeting     string `yaml:"greeting"`
	Instructions string `yaml:"instructions"`
}

func (p Persona) validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidPersona)
	}
	if strings.TrimSpace(p.Instructions) == "" {
		return fmt.Errorf("%w: %s has no instructions", ErrInvalidPersona, p.Name)
	}
	return nil
}

// Registry holds personas by name
type Registry struct {
	personas map[string]Persona
}

// Load reads the built-in personas and then every *.yaml in dir. A persona in
// dir replaces a built-in one with the same name. dir may be empty.
func Load(dir string) (*Registry, error) {
	r := &Registry{personas: make(map[string]Persona)}

	if err := r.loadFS(builtin, "personas"); err != nil {
		return nil, err
	}
	if dir != "" {
		if err := r.loadFS(os.DirFS(dir), "."); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) loadFS(fsys fs.FS, root string) error {
	paths, err := fs.Glob(fsys, filepath.ToSlash(filepath.Join(root, "*.yaml")))
	if err != nil {
		return fmt.Errorf("failed to list personas: %w", err)
	}
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read persona %s: %w", path, err)
		}
		p, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		r.personas[p.Name] = p
	}
	return nil
}

// Parse decodes a single persona document
func Parse(data []byte) (Persona, error) {
	var p Persona
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Persona{}, fmt.Errorf("%w: %w", ErrInvalidPersona, err)
	}
	if err := p.validate(); err != nil {
		return Persona{}, err
	}
	if p.BotName == "" {
		p.BotName = DefaultBotName
	}
	return p, nil
}

func (r *Registry) Get(name string) (Persona, error) {
	p, ok := r.personas[name]
	if !ok {
		return Persona{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownPersona, name, strings.Join(r.Names(), ", "))
	}
	return p, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.personas))
	for name := range r.personas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
