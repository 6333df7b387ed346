// Package i18n holds the English and Turkish string tables.
package i18n

import "strings"

// Language is a supported UI language.
type Language string

const (
	English Language = "en"
	Turkish Language = "tr"
)

// Languages lists the supported languages.
var Languages = []Language{English, Turkish}

var translations = map[Language]map[string]string{
	English: {
		"appName":            "Multi-AI",
		"startChat":          "Start chat with {provider}",
		"startChatEmpty":     "Start chat with {provider}",
		"messagePlaceholder": "Message with {provider}...",
		"uploadFile":         "Upload File (PDF, TXT...)",
		"uploadImage":        "Upload Image",

		"settings":       "Settings",
		"appearance":     "Appearance",
		"lightMode":      "Light Mode",
		"darkMode":       "Dark Mode",
		"language":       "Language",
		"selectLanguage": "Select Language",

		"builtInProviders":  "Built-in Providers",
		"customProviders":   "Custom Providers",
		"addCustomProvider": "Add Custom Provider",
		"providerName":      "Provider Name",
		"baseUrl":           "Base URL",
		"modelIds":          "Model IDs",
		"addProvider":       "Add Provider",
		"remove":            "Remove",
		"enterKey":          "Enter key",
		"save":              "Save",

		"chatHistory": "Chat History",
		"newChat":     "New Chat",

		"error":   "Error",
		"loading": "Loading...",

		"you":                 "You",
		"thinking":            "Thinking with {model}...",
		"chatHelp":            "Commands: /new /history /switch <id> /delete <id> /model <id> /attach <path> /screenshot [url] /clear /help /quit",
		"noModels":            "No models available for {provider}. Add an API key with: multiai keys set {provider}",
		"modelSelected":       "Using model {model}",
		"conversationStarted": "Started conversation {id}",
		"conversationSwitch":  "Switched to conversation {id}",
		"conversationDeleted": "Deleted conversation {id}",
		"noConversations":     "No conversations yet",
		"cleared":             "Cleared messages on screen (history is kept)",
		"attached":            "Attached {name}",
		"clipboardAttached":   "Clipboard text attached as {name}",
		"keySaved":            "Saved API key for {provider}",
		"keyDeleted":          "Removed API key for {provider}",
		"providerAdded":       "Added custom provider {name} ({id})",
		"providerRemoved":     "Removed custom provider {id}",
		"themeSet":            "Theme set to {theme}",
		"goodbye":             "Bye!",

		"screenshotNoTab":      "No active tab found",
		"screenshotRestricted": "Screenshots cannot be taken on this page (New Tab, Settings, etc.). Please open a regular website (e.g. Google).",
		"screenshotPermission": "Permission error: allow the debugger to attach to this site or try a real website.",
		"screenshotSaved":      "Screenshot saved to {path}",
	},
	Turkish: {
		"appName":            "Multi-AI",
		"startChat":          "{provider} ile sohbet başlatın",
		"startChatEmpty":     "{provider} ile sohbet başlatın",
		"messagePlaceholder": "{provider} ile mesaj...",
		"uploadFile":         "Dosya Yükle (PDF, TXT...)",
		"uploadImage":        "Resim Yükle",

		"settings":       "Ayarlar",
		"appearance":     "Görünüm",
		"lightMode":      "Aydınlık Mod",
		"darkMode":       "Karanlık Mod",
		"language":       "Dil",
		"selectLanguage": "Dil Seçin",

		"builtInProviders":  "Dahili Sağlayıcılar",
		"customProviders":   "Özel Sağlayıcılar",
		"addCustomProvider": "Özel Sağlayıcı Ekle",
		"providerName":      "Sağlayıcı Adı",
		"baseUrl":           "Temel URL",
		"modelIds":          "Model Kimlikleri",
		"addProvider":       "Sağlayıcı Ekle",
		"remove":            "Kaldır",
		"enterKey":          "Anahtar girin",
		"save":              "Kaydet",

		"chatHistory": "Sohbet Geçmişi",
		"newChat":     "Yeni Sohbet",

		"error":   "Hata",
		"loading": "Yükleniyor...",

		"you":                 "Sen",
		"thinking":            "{model} düşünüyor...",
		"chatHelp":            "Komutlar: /new /history /switch <id> /delete <id> /model <id> /attach <yol> /screenshot [url] /clear /help /quit",
		"noModels":            "{provider} için model yok. API anahtarı ekleyin: multiai keys set {provider}",
		"modelSelected":       "{model} modeli kullanılıyor",
		"conversationStarted": "{id} sohbeti başlatıldı",
		"conversationSwitch":  "{id} sohbetine geçildi",
		"conversationDeleted": "{id} sohbeti silindi",
		"noConversations":     "Henüz sohbet yok",
		"cleared":             "Ekrandaki mesajlar temizlendi (geçmiş korunur)",
		"attached":            "{name} eklendi",
		"clipboardAttached":   "Pano metni {name} olarak eklendi",
		"keySaved":            "{provider} için API anahtarı kaydedildi",
		"keyDeleted":          "{provider} için API anahtarı kaldırıldı",
		"providerAdded":       "Özel sağlayıcı eklendi: {name} ({id})",
		"providerRemoved":     "Özel sağlayıcı kaldırıldı: {id}",
		"themeSet":            "Tema {theme} olarak ayarlandı",
		"goodbye":             "Görüşürüz!",

		"screenshotNoTab":      "Aktif sekme bulunamadı",
		"screenshotRestricted": "Bu sayfada (Yeni Sekme, Ayarlar vb.) screenshot alınamaz. Lütfen normal bir web sitesine (örn. Google) gidiniz.",
		"screenshotPermission": "İzin hatası: Lütfen uzantı ayarlarından \"Site erişimi\"ni \"Tüm siteler\" olarak ayarlayın veya gerçek bir web sitesinde deneyin.",
		"screenshotSaved":      "Ekran görüntüsü kaydedildi: {path}",
	},
}

// Parse returns the language named s, falling back to English.
func Parse(s string) Language {
	if _, ok := translations[Language(s)]; ok {
		return Language(s)
	}
	return English
}

// T returns the string for key in lang with {name} placeholders filled from vars. Unknown
// languages use English; unknown keys return the key.
func T(lang Language, key string, vars map[string]string) string {
	table, ok := translations[lang]
	if !ok {
		table = translations[English]
	}
	s, ok := table[key]
	if !ok {
		return key
	}
	for k, v := range vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

// Translator is T bound to one language.
type Translator struct {
	Lang Language
}

// New returns a Translator for the language named lang.
func New(lang string) Translator {
	return Translator{Lang: Parse(lang)}
}

// T looks up key, taking placeholder values as alternating name/value pairs.
func (tr Translator) T(key string, kv ...string) string {
	var vars map[string]string
	if len(kv) > 1 {
		vars = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			vars[kv[i]] = kv[i+1]
		}
	}
	return T(tr.Lang, key, vars)
}
