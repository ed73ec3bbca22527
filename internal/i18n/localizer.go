package i18n

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Localizer resolves, applies and persists the active locale for one visitor. The
// current locale changes only through Apply.
type Localizer struct {
	dict    *Dictionary
	prefs   PreferenceStore
	logger  *zap.Logger
	current Locale
}

// Option customises a Localizer.
type Option func(*Localizer)

// WithLogger attaches a logger used for preference store failures.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Localizer) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLocalizer returns a Localizer reading translations from dict and persisting the
// locale in prefs. The current locale starts as DefaultLocale.
func NewLocalizer(dict *Dictionary, prefs PreferenceStore, opts ...Option) *Localizer {
	if prefs == nil {
		prefs = NewMemoryStore()
	}
	l := &Localizer{
		dict:    dict,
		prefs:   prefs,
		logger:  zap.NewNop(),
		current: DefaultLocale,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Current returns the locale set by the last Apply.
func (l *Localizer) Current() Locale { return l.current }

// Dictionary exposes the dictionary backing the localizer.
func (l *Localizer) Dictionary() *Dictionary { return l.dict }

// Resolve determines the initial locale: the stored preference when present, else
// envTag. Both go through NormalizeTag, so the result is always supported.
func (l *Localizer) Resolve(ctx context.Context, envTag string) Locale {
	stored, ok, err := l.prefs.Get(ctx, LangPreferenceKey)
	if err != nil {
		l.logger.Warn("read locale preference", zap.Error(err))
		ok = false
	}
	if ok && stored != "" {
		resolved := NormalizeTag(stored)
		if string(resolved) != stored {
			l.logger.Debug("stored locale preference normalised",
				zap.String("stored", stored),
				zap.String("locale", string(resolved)),
			)
		}
		return resolved
	}
	return NormalizeTag(envTag)
}

// Apply projects locale onto doc, persists it and makes it current. The locale is not
// re-validated: an unsupported code leaves every bound node untouched. Only a
// preference store failure is returned; the document is updated regardless.
func (l *Localizer) Apply(ctx context.Context, doc *goquery.Document, locale Locale) error {
	Project(doc, l.dict, locale)
	l.current = locale
	if err := l.prefs.Set(ctx, LangPreferenceKey, string(locale)); err != nil {
		return fmt.Errorf("i18n: persist locale %q: %w", locale, err)
	}
	return nil
}

// Init resolves the initial locale and applies it: the page load path.
func (l *Localizer) Init(ctx context.Context, doc *goquery.Document, envTag string) (Locale, error) {
	locale := l.Resolve(ctx, envTag)
	return locale, l.Apply(ctx, doc, locale)
}

// T looks key up in the current locale.
func (l *Localizer) T(key string) (string, bool) {
	return l.TIn(l.current, key)
}

// TIn looks key up in an explicit locale.
func (l *Localizer) TIn(locale Locale, key string) (string, bool) {
	return l.dict.Lookup(locale, key)
}

// TOr returns the translation of key in the current locale or fallback when absent.
func (l *Localizer) TOr(key, fallback string) string {
	if v, ok := l.T(key); ok {
		return v
	}
	return fallback
}
