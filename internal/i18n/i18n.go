// Package i18n looks up user-facing strings from the embedded locale catalogs.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"emperror.dev/errors"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var locales embed.FS

type Translator struct {
	tags     []language.Tag
	catalogs []map[string]string
	matcher  language.Matcher
	fallback int
}

// New loads every catalog and falls back to defaultLang, then English, for missing keys.
func New(defaultLang string) (*Translator, error) {
	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil, err
	}

	t := &Translator{}
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".yaml")
		tag, err := language.Parse(name)
		if err != nil {
			return nil, errors.WithMessage(err, "locale "+entry.Name())
		}
		data, err := locales.ReadFile(path.Join("locales", entry.Name()))
		if err != nil {
			return nil, err
		}
		catalog := map[string]string{}
		if err := yaml.Unmarshal(data, &catalog); err != nil {
			return nil, errors.WithMessage(err, "parse locale "+entry.Name())
		}
		t.tags = append(t.tags, tag)
		t.catalogs = append(t.catalogs, catalog)
	}
	if len(t.tags) == 0 {
		return nil, errors.New("no locale catalogs embedded")
	}
	t.matcher = language.NewMatcher(t.tags)
	t.fallback = t.english()
	if idx, ok := t.index(defaultLang); ok {
		t.fallback = idx
	}
	return t, nil
}

// index reports the catalog matching lang, or false when lang is empty or unsupported.
func (t *Translator) index(lang string) (int, bool) {
	tag, err := language.Parse(lang)
	if err != nil {
		return -1, false
	}
	_, idx, conf := t.matcher.Match(tag)
	if conf == language.No {
		return -1, false
	}
	return idx, true
}

func (t *Translator) english() int {
	for i, tag := range t.tags {
		if tag == language.English {
			return i
		}
	}
	return 0
}

// T translates key for lang. Args are applied with fmt.Sprintf. Unknown keys come back as-is.
func (t *Translator) T(lang, key string, args ...any) string {
	value, ok := t.lookup(lang, key)
	if !ok {
		return key
	}
	if len(args) == 0 {
		return value
	}
	return fmt.Sprintf(value, args...)
}

func (t *Translator) lookup(lang, key string) (string, bool) {
	order := []int{t.fallback, t.english()}
	if idx, ok := t.index(lang); ok {
		order = append([]int{idx}, order...)
	}
	for _, idx := range order {
		if value, ok := t.catalogs[idx][key]; ok {
			return value, true
		}
	}
	return "", false
}

// Has reports whether any catalog defines key.
func (t *Translator) Has(key string) bool {
	for _, catalog := range t.catalogs {
		if _, ok := catalog[key]; ok {
			return true
		}
	}
	return false
}
