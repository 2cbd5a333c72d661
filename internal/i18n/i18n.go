package i18n

import (
	"embed"
	"encoding/json"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/jordanurbs/aicaptains-api/internal/config"
)

//go:embed locales/*.json
var localeFS embed.FS

// Localizer manages internationalization of user-facing strings.
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer from the embedded message catalogs.
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, err
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, entry := range entries {
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+entry.Name()); err != nil {
			return nil, err
		}
		lang := strings.TrimSuffix(entry.Name(), ".json")
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns the localized message, falling back to the default language and
// finally to the message ID itself.
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}
	if localizer == nil {
		return messageID
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}

	return msg
}

// Message IDs
const (
	MsgValidationFailed  = "validation_failed"
	MsgInvalidBody       = "invalid_body"
	MsgRateLimitExceeded = "rate_limit_exceeded"
	MsgNotConfigured     = "not_configured"
	MsgEmptyCompletion   = "empty_completion"
	MsgInternalError     = "internal_error"
)
