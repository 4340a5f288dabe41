package xmem

import (
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Message ids for built-in prompt labels.
const (
	msgConfirmTitle  = "confirm.title"
	msgConfirmAction = "confirm.action"
	msgCancelAction  = "confirm.cancel"
)

var defaultMessages = map[language.Tag][]*i18n.Message{
	language.English: {
		{ID: msgConfirmTitle, Other: "Confirm"},
		{ID: msgConfirmAction, Other: "Confirm"},
		{ID: msgCancelAction, Other: "Cancel"},
	},
	language.SimplifiedChinese: {
		{ID: msgConfirmTitle, Other: "确认"},
		{ID: msgConfirmAction, Other: "确认"},
		{ID: msgCancelAction, Other: "取消"},
	},
}

// NewMessageBundle returns a bundle holding the built-in English and
// Simplified Chinese labels. Callers may add more languages to it.
func NewMessageBundle() *i18n.Bundle {
	bundle := i18n.NewBundle(language.English)
	for tag, msgs := range defaultMessages {
		if err := bundle.AddMessages(tag, msgs...); err != nil {
			panic(err)
		}
	}
	return bundle
}

// localize returns the message for id, falling back to the id itself.
func localize(l *i18n.Localizer, id string) string {
	s, err := l.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil {
		return id
	}
	return s
}
