package i18n

import (
	"testing"

	"github.com/jordanurbs/aicaptains-api/internal/config"
)

func newTestLocalizer(t *testing.T) *Localizer {
	t.Helper()
	l, err := NewLocalizer(&config.I18nConfig{DefaultLanguage: "en"})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestKnownMessages(t *testing.T) {
	l := newTestLocalizer(t)

	for _, id := range []string{
		MsgValidationFailed,
		MsgInvalidBody,
		MsgRateLimitExceeded,
		MsgNotConfigured,
		MsgEmptyCompletion,
		MsgInternalError,
	} {
		msg := l.Get("en", id, nil)
		if msg == "" || msg == id {
			t.Errorf("message %q not localized, got %q", id, msg)
		}
	}
}

func TestUnknownMessageFallsBackToID(t *testing.T) {
	l := newTestLocalizer(t)
	if got := l.Get("en", "no_such_message", nil); got != "no_such_message" {
		t.Errorf("expected the ID itself, got %q", got)
	}
}

func TestUnknownLanguageUsesDefault(t *testing.T) {
	l := newTestLocalizer(t)
	want := l.Get("en", MsgRateLimitExceeded, nil)
	if got := l.Get("xx", MsgRateLimitExceeded, nil); got != want {
		t.Errorf("expected the default language message %q, got %q", want, got)
	}
}
