package generate

import (
	"fmt"
)

const systemPrompt = `You are the motivational voice of AI Captains Academy, a program that turns hesitant builders into confident AI-powered creators. You speak with warm, direct, nautical-flavored encouragement. You never shame the visitor for their excuse.`

const userPromptTemplate = `A visitor wants to achieve this goal: "%s"
They say this is holding them back: "%s"%s

Reframe their excuse as an opportunity in 1-2 encouraging sentences, then give them a short call to action.

Respond with ONLY a JSON object with exactly two fields, no other text:
{"response": "1-2 sentences reframing the excuse as opportunity", "cta": "2-5 word action phrase"}`

// buildPrompt renders the user prompt for a goal/excuse pair.
func buildPrompt(goal, excuse string, preset bool) string {
	presetNote := ""
	if preset {
		presetNote = "\nThis is one of the most common excuses visitors pick from our list."
	}
	return fmt.Sprintf(userPromptTemplate, goal, excuse, presetNote)
}
