// Package narration produces beat text. The narration service proper lives
// outside this daemon; Demo stands in for it with the fixed haunted-shore beats.
package narration

import (
	"context"
	"fmt"
)

// Choice is one next-step option offered after a beat.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Beat is one narrated story unit.
type Beat struct {
	Index     int      `json:"index"`
	Narration string   `json:"narration"`
	Choices   []Choice `json:"choices"`
}

// Generator produces the beat at an index of a story.
type Generator interface {
	Beat(ctx context.Context, storyID string, index int) (Beat, error)
}

// Demo is a Generator with canned narration.
type Demo struct{}

// Beat returns the demo beat for index. Negative indexes are rejected.
func (Demo) Beat(_ context.Context, _ string, index int) (Beat, error) {
	if index < 0 {
		return Beat{}, fmt.Errorf("beat index %d: must not be negative", index)
	}

	text := fmt.Sprintf("Beat %d: the tale continues with choice-driven suspense.", index+1)
	if index == 0 {
		text = "You arrive at the haunted shore, waves whispering secrets."
	}

	return Beat{
		Index:     index,
		Narration: text,
		Choices: []Choice{
			{ID: "continue", Text: "Continue the journey"},
			{ID: "reflect", Text: "Reflect on the last choice"},
		},
	}, nil
}
