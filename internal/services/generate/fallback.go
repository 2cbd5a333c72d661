package generate

import (
	"github.com/jordanurbs/aicaptains-api/internal/models"
)

// fallbackResponses are served when live generation is unavailable. Keep the
// list length stable: the selector indexes into it deterministically.
var fallbackResponses = []models.GenerateResult{
	{
		Response: "Every captain started as a sailor who refused to stay docked. Your goal is closer than that excuse makes it look.",
		CTA:      "Start Your Voyage",
	},
	{
		Response: "That excuse is just fog on the water. The moment you set a course, it lifts.",
		CTA:      "Chart Your Course",
	},
	{
		Response: "You don't need perfect conditions to leave the harbor. You need a first step, and you already know what it is.",
		CTA:      "Take The Helm",
	},
	{
		Response: "Every obstacle you just named is cargo you can throw overboard. Lighten the ship and move.",
		CTA:      "Set Sail Today",
	},
	{
		Response: "The sea rewards the ones who show up. Your goal is waiting past the breakwater.",
		CTA:      "Claim Your Command",
	},
}

// SelectFallback deterministically picks a canned response for an input pair:
// the character-code sum of goal+excuse modulo the list length. Identical
// inputs always land on the same pair.
func SelectFallback(goal, excuse string) *models.GenerateResult {
	sum := 0
	for _, r := range goal + excuse {
		sum += int(r)
	}

	picked := fallbackResponses[sum%len(fallbackResponses)]
	return &picked
}
