package i18n

import (
	"encoding/json"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T, files fstest.MapFS) *I18n {
	t.Helper()
	i := &I18n{translations: make(map[string]map[string]string), defaultLang: "en"}
	require.NoError(t, i.LoadTranslations(files, "locales"))
	return i
}

func TestTranslateWithFallback(t *testing.T) {
	i := newCatalog(t, fstest.MapFS{
		"locales/en.json":    {Data: []byte(`{"greeting": "Hello %s", "only.en": "English only"}`)},
		"locales/zh_TW.json": {Data: []byte(`{"greeting": "你好 %s"}`)},
	})

	assert.Equal(t, "Hello Ana", i.T("en", "greeting", "Ana"))
	assert.Equal(t, "你好 Ana", i.T("zh_TW", "greeting", "Ana"))
	assert.Equal(t, "English only", i.T("zh_TW", "only.en"))
	assert.Equal(t, "English only", i.T("fr", "only.en"))
	assert.Equal(t, "missing.key", i.T("en", "missing.key"))
}

func TestLoadTranslationsRejectsMalformedCatalog(t *testing.T) {
	i := &I18n{translations: make(map[string]map[string]string), defaultLang: "en"}
	err := i.LoadTranslations(fstest.MapFS{
		"locales/en.json": {Data: []byte(`{"broken": `)},
	}, "locales")
	assert.Error(t, err)
}

func TestEmbeddedCatalogsCoverTheSameKeys(t *testing.T) {
	catalogs := map[string]map[string]string{}
	for _, lang := range []string{"en", "zh_TW"} {
		data, err := localeFS.ReadFile("locales/" + lang + ".json")
		require.NoError(t, err)
		var entries map[string]string
		require.NoError(t, json.Unmarshal(data, &entries))
		catalogs[lang] = entries
	}

	for key := range catalogs["en"] {
		assert.Contains(t, catalogs["zh_TW"], key)
	}
	for key := range catalogs["zh_TW"] {
		assert.Contains(t, catalogs["en"], key)
	}

	for _, key := range []string{
		KeyAuthRequired, KeyPartnerCreated, KeyApplicationApproved, KeyTrialCompleted,
		KeyOrderUnassigned, KeyNewsletterQueued, KeyRateLimited, KeyRequestTimeout,
	} {
		assert.Contains(t, catalogs["en"], key)
	}
}

func TestGlobalTranslate(t *testing.T) {
	require.NoError(t, Initialize("en"))

	assert.Equal(t, "Newsletter queued for 3 subscribers", T("en", KeyNewsletterQueued, 3))
	assert.Contains(t, GetSupportedLanguages(), "zh_TW")
}
