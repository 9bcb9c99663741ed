// Package stub provides a deterministic ProviderClient used as the shipped
// default for providers that have no real backing client configured yet.
package stub

import (
	"context"
	"hash/fnv"
	"math/rand"

	"github.com/parsehub/parsehub/internal/models"
)

// lowConfidenceNotifyThreshold is the cutoff below which the stub attaches a
// notify_admin tool call to its single generated event.
const lowConfidenceNotifyThreshold = 0.65

// Client is a fixture ProviderClient that returns a single deterministic
// event per source URL. Determinism comes from seeding a private
// math/rand.Rand from a hash of (label, sourceURL); it never touches the
// global rand source, so concurrent stub calls never interfere with each
// other or with unrelated code that uses math/rand.
type Client struct {
	Label string
}

// New creates a stub client identified by label, which is folded into the
// seed so distinct stub registrations (e.g. per provider) produce distinct
// deterministic output for the same source URL.
func New(label string) *Client {
	return &Client{Label: label}
}

// ParseTimetable returns one deterministic ParsedEvent derived from the
// client's label and sourceURL.
func (c *Client) ParseTimetable(ctx context.Context, sourceURL string) ([]models.ParsedEvent, error) {
	seed := seedFor(c.Label, sourceURL)
	rng := rand.New(rand.NewSource(seed))

	confidence := round2(0.55 + rng.Float64()*(0.95-0.55))

	var toolCalls []models.ToolCall
	if confidence < lowConfidenceNotifyThreshold {
		toolCalls = append(toolCalls, models.ToolCall{
			Type: "notify_admin",
			Payload: models.Attributes{
				"reason":     "low_confidence",
				"source_url": sourceURL,
			},
			NeedsApproval: false,
		})
	}

	event := models.ParsedEvent{
		Title:      "Auto Generated (" + c.Label + ")",
		Weekday:    1 + rng.Intn(5),
		Start:      "09:00",
		End:        "10:30",
		Location:   "Room 101",
		Assignees:  []string{"instructor-1"},
		Confidence: confidence,
		ToolCalls:  toolCalls,
	}
	return []models.ParsedEvent{event}, nil
}

// seedFor derives a stable seed from label and sourceURL using FNV-1a,
// masked to 32 bits, the same "hash the identifying fields into a PRNG seed"
// idiom used for other deterministic test fixtures in this codebase.
func seedFor(label, sourceURL string) int64 {
	h := fnv.New64a()
	h.Write([]byte(label))
	h.Write([]byte{0})
	h.Write([]byte(sourceURL))
	return int64(h.Sum64() & 0xFFFFFFFF)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
