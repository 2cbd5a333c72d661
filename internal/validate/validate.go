package validate

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jordanurbs/aicaptains-api/internal/models"
)

// Field length bounds, measured after trimming.
const (
	GoalMinLen   = 5
	GoalMaxLen   = 200
	ExcuseMinLen = 10
	ExcuseMaxLen = 300

	// Hard server-side cap applied after validation, regardless of the
	// schema bounds above.
	SanitizeMaxLen = 500
)

// ValidationError carries one human-readable message per violated rule.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Details, "; ")
}

// ParseGenerateRequest decodes a request body and validates it. A malformed
// body yields a plain error; out-of-bounds fields yield a *ValidationError.
func ParseGenerateRequest(body io.Reader) (*models.GenerateRequest, error) {
	var req models.GenerateRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	if err := CheckGenerateRequest(&req); err != nil {
		return nil, err
	}

	return &req, nil
}

// CheckGenerateRequest applies the field rules to an already-decoded request.
func CheckGenerateRequest(req *models.GenerateRequest) error {
	var details []string

	goal := strings.TrimSpace(req.Goal)
	if n := utf8.RuneCountInString(goal); n < GoalMinLen {
		details = append(details, fmt.Sprintf("goal must be at least %d characters", GoalMinLen))
	} else if n > GoalMaxLen {
		details = append(details, fmt.Sprintf("goal must be at most %d characters", GoalMaxLen))
	}

	excuse := strings.TrimSpace(req.Excuse)
	if n := utf8.RuneCountInString(excuse); n < ExcuseMinLen {
		details = append(details, fmt.Sprintf("excuse must be at least %d characters", ExcuseMinLen))
	} else if n > ExcuseMaxLen {
		details = append(details, fmt.Sprintf("excuse must be at most %d characters", ExcuseMaxLen))
	}

	if len(details) > 0 {
		return &ValidationError{Details: details}
	}

	return nil
}

// Sanitize strips angle brackets from free text, trims it, and caps its length.
func Sanitize(s string) string {
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > SanitizeMaxLen {
		s = string([]rune(s)[:SanitizeMaxLen])
	}
	return s
}
