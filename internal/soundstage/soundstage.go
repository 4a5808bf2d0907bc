// Package soundstage derives the ambience bed and sound-effect cues for one
// narrated beat from its text.
//
// Planning is pure and total: the same text and beat index always produce the
// same cues, ambience and inspiration (cue ids aside), and there is no error path.
package soundstage

import (
	"strings"

	"github.com/google/uuid"
)

// Intensity tags how prominent a cue should be in the mix.
type Intensity string

const (
	IntensitySubtle Intensity = "subtle"
	IntensityMedium Intensity = "medium"
	IntensityBig    Intensity = "big"
)

// beatSpacingMs spaces cues of consecutive beats apart.
const beatSpacingMs = 200

// Ambience is the looping background bed under a beat.
type Ambience struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	AssetURL string  `json:"asset_url"`
	Loop     bool    `json:"loop"`
	GainDB   float64 `json:"gain"`
}

// Cue is a single timed sound effect.
type Cue struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	AssetURL  string    `json:"asset_url"`
	Intensity Intensity `json:"intensity"`
	StartMs   int       `json:"start_ms"`
}

// Plan is the soundstage for one beat. It is a value: callers must not
// mutate the slices they receive.
type Plan struct {
	Ambience    *Ambience `json:"ambience"`
	Cues        []Cue     `json:"cues"`
	Inspiration []string  `json:"inspiration"`
}

// Planner builds plans. The zero value is not usable; use NewPlanner.
type Planner struct {
	newID func() string
}

// NewPlanner returns a planner that stamps cues with ids from newID.
// A nil newID uses random UUIDs.
func NewPlanner(newID func() string) *Planner {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Planner{newID: newID}
}

var defaultPlanner = NewPlanner(nil)

// PlanFor plans a beat with random cue ids.
func PlanFor(text string, beatIdx int) Plan {
	return defaultPlanner.Plan(text, beatIdx)
}

// Plan scans the effect table top to bottom, then picks the first matching
// ambience. Keyword position in the text never affects order or timing.
func (p *Planner) Plan(text string, beatIdx int) Plan {
	lowered := strings.ToLower(text)

	cues := []Cue{}
	inspiration := []string{}
	used := make(map[string]bool, len(soundLibrary))

	for _, entry := range soundLibrary {
		if !containsAny(lowered, entry.keywords) || used[entry.label] {
			continue
		}
		cues = append(cues, Cue{
			ID:        p.newID(),
			Label:     entry.label,
			AssetURL:  entry.assetURL,
			Intensity: entry.intensity,
			StartMs:   max(0, beatIdx*beatSpacingMs+entry.offsetMs),
		})
		used[entry.label] = true
		inspiration = append(inspiration, entry.label)
	}

	ambience := defaultAmbience
	for _, entry := range ambienceLibrary {
		if containsAny(lowered, entry.keywords) {
			ambience = entry.ambience
			break
		}
	}

	if len(cues) == 0 {
		inspiration = append(inspiration, fallbackInspiration...)
	}

	return Plan{
		Ambience:    &ambience,
		Cues:        cues,
		Inspiration: inspiration,
	}
}

// Labels returns the cue labels in plan order.
func (p Plan) Labels() []string {
	labels := make([]string, 0, len(p.Cues))
	for _, c := range p.Cues {
		labels = append(labels, c.Label)
	}
	return labels
}

// AmbienceID returns the ambience id, or "" when the plan has none.
func (p Plan) AmbienceID() string {
	if p.Ambience == nil {
		return ""
	}
	return p.Ambience.ID
}

func containsAny(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
