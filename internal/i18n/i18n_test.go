package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTranslateByLocale(t *testing.T) {
	tr, err := New("en")
	require.NoError(t, err)

	assert.Equal(t, "Yes", tr.T("en-US", "value.yes"))
	assert.Equal(t, "Oui", tr.T("fr", "value.yes"))
	assert.Equal(t, "Gateway latency: 42 ms", tr.T("en-GB", "ping.latency", 42))
}

func TestTranslateFallsBack(t *testing.T) {
	tr, err := New("fr")
	require.NoError(t, err)

	assert.Equal(t, "Oui", tr.T("de", "value.yes"), "unknown locale uses the default language")
	assert.Equal(t, "Oui", tr.T("", "value.yes"))
	assert.Equal(t, "missing.key", tr.T("en", "missing.key"))
	assert.False(t, tr.Has("missing.key"))
	assert.True(t, tr.Has("ban.title"))
}

func TestUnsupportedLocaleUsesDefaultBeforeEnglish(t *testing.T) {
	tr, err := New("fr")
	require.NoError(t, err)

	for _, lang := range []string{"", "de", "not a locale"} {
		_, ok := tr.index(lang)
		assert.False(t, ok, "locale %q", lang)
		assert.Equal(t, "Non", tr.T(lang, "value.no"), "locale %q", lang)
	}

	en, err := New("de")
	require.NoError(t, err)
	assert.Equal(t, "No", en.T("ja", "value.no"), "unsupported default falls back to English")
	assert.Equal(t, "Non", en.T("fr-CA", "value.no"))
}

func TestCatalogsDefineSameKeys(t *testing.T) {
	load := func(name string) map[string]string {
		data, err := locales.ReadFile("locales/" + name)
		require.NoError(t, err)
		catalog := map[string]string{}
		require.NoError(t, yaml.Unmarshal(data, &catalog))
		return catalog
	}
	en, fr := load("en.yaml"), load("fr.yaml")
	for key := range en {
		assert.Contains(t, fr, key)
	}
	for key := range fr {
		assert.Contains(t, en, key)
	}
}
