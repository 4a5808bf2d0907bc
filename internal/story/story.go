// Package story holds the story catalog. Each story carries the voice policy
// the engine selector consults and the default narrator voice for its runs.
package story

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nadzzz/ovida/internal/audio"
)

// ErrNotFound is returned for an unknown story id.
var ErrNotFound = errors.New("story not found")

// Story is one entry of the catalog.
type Story struct {
	ID          string            `yaml:"id" json:"id"`
	Title       string            `yaml:"title" json:"title"`
	VoicePolicy audio.VoicePolicy `yaml:"voice_policy" json:"voice_policy,omitempty"`
	VoiceID     string            `yaml:"voice_id" json:"voice_id,omitempty"`
}

// DefaultStories is served when no catalog file is configured.
var DefaultStories = []Story{
	{ID: "haunted-shore", Title: "Haunted Shore", VoicePolicy: audio.PolicyRealtimeOK},
}

type catalogFile struct {
	Stories []Story `yaml:"stories"`
}

// Catalog is an immutable, ordered set of stories.
type Catalog struct {
	order []Story
	byID  map[string]Story
}

// NewCatalog builds a catalog from stories. Ids must be unique and non-empty,
// and the voice policy, when set, must be a known one.
func NewCatalog(stories []Story) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Story, len(stories))}
	for _, s := range stories {
		if s.ID == "" {
			return nil, fmt.Errorf("story %q: missing id", s.Title)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("story %q: duplicate id", s.ID)
		}
		switch s.VoicePolicy {
		case "", audio.PolicyPremium, audio.PolicyRealtimeOK:
		default:
			return nil, fmt.Errorf("story %q: unknown voice_policy %q", s.ID, s.VoicePolicy)
		}
		if s.Title == "" {
			s.Title = s.ID
		}
		c.byID[s.ID] = s
		c.order = append(c.order, s)
	}
	return c, nil
}

// Load reads a YAML catalog of the form
//
//	stories:
//	  - id: haunted-shore
//	    title: Haunted Shore
//	    voice_policy: realtime-ok
//
// An empty path yields DefaultStories.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(DefaultStories)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading story catalog: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing story catalog: %w", err)
	}
	return NewCatalog(f.Stories)
}

// Get returns the story with id.
func (c *Catalog) Get(id string) (Story, error) {
	s, ok := c.byID[id]
	if !ok {
		return Story{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// List returns the stories in catalog order.
func (c *Catalog) List() []Story {
	out := make([]Story, len(c.order))
	copy(out, c.order)
	return out
}
