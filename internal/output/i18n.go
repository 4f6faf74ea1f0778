package output

import "golang.org/x/text/language"

// translations of the theme strings, by language
var translations = map[language.Tag]map[string]string{
	language.English: {
		"SUMMARY":              "Table of Contents",
		"SUMMARY_INTRODUCTION": "Introduction",
		"LANGS_CHOOSE":         "Choose a language",
		"GLOSSARY":             "Glossary",
		"GLOSSARY_INDEX":       "Index",
		"SEARCH_PLACEHOLDER":   "Type to search",
		"PREVIOUS_PAGE":        "Previous page",
		"NEXT_PAGE":            "Next page",
		"GENERATED_BY":         "Generated by folio",
	},
	language.French: {
		"SUMMARY":              "Table des matières",
		"SUMMARY_INTRODUCTION": "Introduction",
		"LANGS_CHOOSE":         "Choisir une langue",
		"GLOSSARY":             "Glossaire",
		"GLOSSARY_INDEX":       "Index",
		"SEARCH_PLACEHOLDER":   "Tapez pour rechercher",
		"PREVIOUS_PAGE":        "Page précédente",
		"NEXT_PAGE":            "Page suivante",
		"GENERATED_BY":         "Généré par folio",
	},
	language.German: {
		"SUMMARY":              "Inhaltsverzeichnis",
		"SUMMARY_INTRODUCTION": "Einleitung",
		"LANGS_CHOOSE":         "Sprache auswählen",
		"GLOSSARY":             "Glossar",
		"GLOSSARY_INDEX":       "Index",
		"SEARCH_PLACEHOLDER":   "Suchbegriff eingeben",
		"PREVIOUS_PAGE":        "Vorherige Seite",
		"NEXT_PAGE":            "Nächste Seite",
		"GENERATED_BY":         "Erstellt mit folio",
	},
	language.Spanish: {
		"SUMMARY":              "Tabla de contenidos",
		"SUMMARY_INTRODUCTION": "Introducción",
		"LANGS_CHOOSE":         "Elige un idioma",
		"GLOSSARY":             "Glosario",
		"GLOSSARY_INDEX":       "Índice",
		"SEARCH_PLACEHOLDER":   "Escribe para buscar",
		"PREVIOUS_PAGE":        "Página anterior",
		"NEXT_PAGE":            "Página siguiente",
		"GENERATED_BY":         "Generado con folio",
	},
}

var supported = []language.Tag{language.English, language.French, language.German, language.Spanish}

var matcher = language.NewMatcher(supported)

// translate returns the theme string key in the book language, falling back to English
// and then to the key itself
func translate(lang, key string) string {
	tag := language.English
	if lang != "" {
		if t, err := language.Parse(lang); err == nil {
			_, index, _ := matcher.Match(t)
			tag = supported[index]
		}
	}
	if s, ok := translations[tag][key]; ok {
		return s
	}
	if s, ok := translations[language.English][key]; ok {
		return s
	}
	return key
}
