package generate

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/jordanurbs/aicaptains-api/internal/models"
)

var (
	codeFencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	responseFieldRe  = regexp.MustCompile(`"response"\s*:\s*("(?:[^"\\]|\\.)*")`)
	ctaFieldRe       = regexp.MustCompile(`"cta"\s*:\s*("(?:[^"\\]|\\.)*")`)
)

// parseCompletion extracts a {response, cta} pair from free-form model output.
// Two strategies, in order: a strict JSON parse of the (unfenced) content,
// then regex extraction of the two string fields individually. Both fields
// must come back non-empty.
func parseCompletion(content string) (*models.GenerateResult, bool) {
	content = strings.TrimSpace(content)
	if m := codeFencePattern.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	var result models.GenerateResult
	if err := json.Unmarshal([]byte(content), &result); err == nil {
		result.Response = strings.TrimSpace(result.Response)
		result.CTA = strings.TrimSpace(result.CTA)
		if result.Response != "" && result.CTA != "" {
			return &result, true
		}
	}

	response, okResponse := extractQuotedField(responseFieldRe, content)
	cta, okCTA := extractQuotedField(ctaFieldRe, content)
	if okResponse && okCTA && response != "" && cta != "" {
		return &models.GenerateResult{Response: response, CTA: cta}, true
	}

	return nil, false
}

// extractQuotedField pulls a JSON string value out of unstructured text and
// unescapes it through the JSON decoder.
func extractQuotedField(re *regexp.Regexp, content string) (string, bool) {
	m := re.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}

	var s string
	if err := json.Unmarshal([]byte(m[1]), &s); err != nil {
		return "", false
	}

	return strings.TrimSpace(s), true
}
