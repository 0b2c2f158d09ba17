package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Language represents a supported UI language
type Language string

const (
	LanguageJapanese Language = "ja"
	LanguageEnglish  Language = "en"
)

// Translator looks up UI strings in the current language
type Translator struct {
	currentLanguage Language
	translations    map[Language]map[string]string
	mu              sync.RWMutex
}

// NewTranslator creates a translator preloaded with the built-in tables
func NewTranslator(language Language) *Translator {
	return &Translator{
		currentLanguage: language,
		translations: map[Language]map[string]string{
			LanguageEnglish:  DefaultEnglishTranslations(),
			LanguageJapanese: DefaultJapaneseTranslations(),
		},
	}
}

// LoadTranslations merges a JSON object of key/text pairs over the table for language
func (t *Translator) LoadTranslations(language Language, data []byte) error {
	var translations map[string]string
	if err := json.Unmarshal(data, &translations); err != nil {
		return fmt.Errorf("failed to unmarshal translations: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	table, ok := t.translations[language]
	if !ok {
		table = make(map[string]string, len(translations))
		t.translations[language] = table
	}
	for k, v := range translations {
		table[k] = v
	}
	return nil
}

// LoadTranslationsFromFile loads translations from a JSON file
func (t *Translator) LoadTranslationsFromFile(language Language, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read translation file: %w", err)
	}
	return t.LoadTranslations(language, data)
}

// SetLanguage sets the current language
func (t *Translator) SetLanguage(language Language) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentLanguage = language
}

// GetLanguage returns the current language
func (t *Translator) GetLanguage() Language {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentLanguage
}

// Translate returns the text for key, falling back to English and then to
// the key itself. A nil translator answers with English.
func (t *Translator) Translate(key string) string {
	if t == nil {
		if text, ok := DefaultEnglishTranslations()[key]; ok {
			return text
		}
		return key
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if text, ok := t.translations[t.currentLanguage][key]; ok {
		return text
	}
	if text, ok := t.translations[LanguageEnglish][key]; ok {
		return text
	}
	return key
}

// TranslateWithFormat translates key and replaces {name} placeholders
func (t *Translator) TranslateWithFormat(key string, params map[string]string) string {
	text := t.Translate(key)
	for param, value := range params {
		text = strings.ReplaceAll(text, "{"+param+"}", value)
	}
	return text
}

// HasTranslation checks if key exists in the current language
func (t *Translator) HasTranslation(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.translations[t.currentLanguage][key]
	return ok
}

// ValidateLanguage validates that a language is supported
func ValidateLanguage(language string) bool {
	return language == string(LanguageJapanese) || language == string(LanguageEnglish)
}

// DetectSystemLanguage picks the UI language from the POSIX locale variables
func DetectSystemLanguage() Language {
	return detectLanguage(os.Getenv)
}

func detectLanguage(getenv func(string) string) Language {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		value := getenv(name)
		if value == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(value), "ja") {
			return LanguageJapanese
		}
		return LanguageEnglish
	}
	return LanguageEnglish
}

// GetSupportedLanguages returns a list of supported languages
func GetSupportedLanguages() []Language {
	return []Language{LanguageJapanese, LanguageEnglish}
}

// DefaultEnglishTranslations returns the built-in English table
func DefaultEnglishTranslations() map[string]string {
	return map[string]string{
		"menu.status":     "Soundboard: {state}",
		"menu.start":      "Start Soundboard",
		"menu.stop":       "Stop Soundboard",
		"menu.microphone": "Microphone",
		"menu.output":     "Output",
		"menu.settings":   "Open Settings...",
		"menu.quit":       "Quit",

		"tooltip.status":     "Pipeline status",
		"tooltip.toggle":     "Start or stop the soundboard",
		"tooltip.microphone": "Select the capture device",
		"tooltip.output":     "Select the virtual cable",
		"tooltip.settings":   "Open the settings page",
		"tooltip.quit":       "Quit the application",

		"state.stopped": "Stopped",
		"state.running": "Running",
		"state.error":   "Error",
	}
}

// DefaultJapaneseTranslations returns the built-in Japanese table
func DefaultJapaneseTranslations() map[string]string {
	return map[string]string{
		"menu.status":     "サウンドボード: {state}",
		"menu.start":      "サウンドボードを開始",
		"menu.stop":       "サウンドボードを停止",
		"menu.microphone": "マイク",
		"menu.output":     "出力",
		"menu.settings":   "設定を開く...",
		"menu.quit":       "終了",

		"tooltip.status":     "パイプラインの状態",
		"tooltip.toggle":     "サウンドボードの開始・停止",
		"tooltip.microphone": "録音デバイスを選択",
		"tooltip.output":     "仮想ケーブルを選択",
		"tooltip.settings":   "設定ページを開く",
		"tooltip.quit":       "アプリケーションを終了",

		"state.stopped": "停止中",
		"state.running": "動作中",
		"state.error":   "エラー",
	}
}
