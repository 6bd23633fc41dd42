package domain

// LanguageNone marks a kiosk with no foreign language support.
const LanguageNone = "none"

// LanguageSeparator joins tags in a normalized language value.
const LanguageSeparator = ", "

// Languages is the fixed set offered by the form, in display order.
var Languages = []string{"English", "Japanese", "Chinese", "Spanish", "Other"}

// legacyLanguages maps tags written by older versions of the form.
var legacyLanguages = map[string]string{
	"영어":       "English",
	"일본어":      "Japanese",
	"중국어":      "Chinese",
	"스페인어":     "Spanish",
	"기타":       "Other",
	"english":  "English",
	"japanese": "Japanese",
	"chinese":  "Chinese",
	"spanish":  "Spanish",
	"other":    "Other",
}

// legacyNone holds values that older sheets used for an empty selection.
var legacyNone = map[string]bool{
	"":           true,
	LanguageNone: true,
	"없음":         true,
	"None":       true,
}

// CanonicalLanguage maps a legacy tag to its canonical name; unknown tags are returned as-is.
func CanonicalLanguage(tag string) string {
	if c, ok := legacyLanguages[tag]; ok {
		return c
	}
	return tag
}

// IsNoneLanguage reports whether tag stands for "no selection".
func IsNoneLanguage(tag string) bool { return legacyNone[tag] }

// IsKnownLanguage reports whether tag is one of Languages.
func IsKnownLanguage(tag string) bool {
	for _, l := range Languages {
		if l == tag {
			return true
		}
	}
	return false
}
