package middleware

import (
	"context"

	"hrportfolio.dev/web/internal/i18n"
)

// context keys are unexported to avoid collisions
type ctxKey string

const (
	ctxKeyLocalizer   ctxKey = "localizer"
	ctxKeyPreferences ctxKey = "preferences"
	ctxKeyEnvTag      ctxKey = "env_tag"
)

// WithLocalizer stores the visitor's localizer in ctx.
func WithLocalizer(ctx context.Context, l *i18n.Localizer) context.Context {
	return context.WithValue(ctx, ctxKeyLocalizer, l)
}

// Localizer returns the localizer stored by the Locale middleware, or nil.
func Localizer(ctx context.Context) *i18n.Localizer {
	l, _ := ctx.Value(ctxKeyLocalizer).(*i18n.Localizer)
	return l
}

// WithPreferences stores the visitor's preference store in ctx.
func WithPreferences(ctx context.Context, store i18n.PreferenceStore) context.Context {
	return context.WithValue(ctx, ctxKeyPreferences, store)
}

// Preferences returns the request's preference store. Without the Locale middleware a
// throwaway memory store is returned so callers never need a nil check.
func Preferences(ctx context.Context) i18n.PreferenceStore {
	if s, ok := ctx.Value(ctxKeyPreferences).(i18n.PreferenceStore); ok && s != nil {
		return s
	}
	return i18n.NewMemoryStore()
}

// WithEnvTag stores the environment language tag.
func WithEnvTag(ctx context.Context, tag string) context.Context {
	return context.WithValue(ctx, ctxKeyEnvTag, tag)
}

// EnvTag returns the environment language tag, or an empty string.
func EnvTag(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyEnvTag).(string)
	return v
}
