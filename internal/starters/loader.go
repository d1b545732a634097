package starters

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	js "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/terra-clan/survey-admin/internal/authoring"
)

//go:embed starter.schema.json
var schemaJSON []byte

const schemaURL = "mem://survey-admin/starter.schema.json"

// ErrStarterNotFound is returned when no starter has the requested name
var ErrStarterNotFound = errors.New("starter not found")

// Starter is a reusable question set a new template can begin from
type Starter struct {
	Name        string     `yaml:"name" json:"name"`
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Questions   []Question `yaml:"questions" json:"questions"`
}

// Question is one question of a starter
type Question struct {
	Type    authoring.QuestionType `yaml:"type" json:"type"`
	Prompt  string                 `yaml:"prompt" json:"prompt"`
	Scale   int                    `yaml:"scale,omitempty" json:"scale,omitempty"`
	Options []string               `yaml:"options,omitempty" json:"options,omitempty"`
}

// Draft builds a fresh authoring draft from the starter; every call
// yields new question ids
func (s *Starter) Draft() (*authoring.Draft, error) {
	d := authoring.NewDraft(s.Title)

	for i, sq := range s.Questions {
		q, err := d.AddQuestion(sq.Type)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}

		patch := authoring.QuestionPatch{Prompt: &sq.Prompt}
		if sq.Type == authoring.QuestionRating && sq.Scale != 0 {
			scale := sq.Scale
			patch.Scale = &scale
		}
		if _, err := d.UpdateQuestion(q.ID, patch); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}

		for j, opt := range sq.Options {
			if j > 0 {
				if _, err := d.AddOption(q.ID); err != nil {
					return nil, fmt.Errorf("question %d: %w", i+1, err)
				}
			}
			if _, err := d.UpdateOption(q.ID, j, opt); err != nil {
				return nil, fmt.Errorf("question %d: %w", i+1, err)
			}
		}
	}

	return d, nil
}

// Loader manages loading and caching of starters
type Loader struct {
	mu       sync.RWMutex
	starters map[string]*Starter
	schema   *js.Schema
}

// NewLoader creates a new starter loader with the embedded schema compiled
func NewLoader() (*Loader, error) {
	c := js.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Loader{
		starters: make(map[string]*Starter),
		schema:   schema,
	}, nil
}

// LoadFromDir loads all YAML starters from a directory. Invalid files are
// logged and skipped.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading starters from directory", "dir", dir)

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", dir, err)
		}
		files = append(files, matches...)
	}

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			slog.Warn("failed to load starter", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("starters loaded", "count", loaded, "total_files", len(files))
	return nil
}

// LoadFromFile loads a single starter from a YAML file
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	s, err := l.Parse(data)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.starters[s.Name] = s
	l.mu.Unlock()

	slog.Debug("starter loaded", "name", s.Name, "questions", len(s.Questions))
	return nil
}

// Parse validates a YAML or JSON document against the starter schema and decodes it
func (l *Loader) Parse(data []byte) (*Starter, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// round-trip through JSON so the validator sees plain JSON types
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert document: %w", err)
	}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("failed to convert document: %w", err)
	}

	if err := l.schema.Validate(value); err != nil {
		return nil, fmt.Errorf("starter validation failed: %w", err)
	}

	var s Starter
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode starter: %w", err)
	}
	return &s, nil
}

// Get retrieves a starter by name
func (l *Loader) Get(name string) (*Starter, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.starters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStarterNotFound, name)
	}
	return s, nil
}

// List returns all starters sorted by name
func (l *Loader) List() []*Starter {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Starter, 0, len(l.starters))
	for _, s := range l.starters {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}
