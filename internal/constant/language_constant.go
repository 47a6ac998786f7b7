package constant

const DefaultTargetLanguage = "English"

// TargetLanguages maps the display names accepted by the chat backend to their ISO codes.
var TargetLanguages = map[string]string{
	"Hindi":     "hi",
	"Tamil":     "ta",
	"Telugu":    "te",
	"Kannada":   "kn",
	"Malayalam": "ml",
	"Marathi":   "mr",
	"Bengali":   "bn",
	"Gujarati":  "gu",
	"Punjabi":   "pa",
	"Odia":      "or",
	"Assamese":  "as",
	"Urdu":      "ur",
	"Sanskrit":  "sa",
	"English":   "en",
}

func IsSupportedLanguage(name string) bool {
	_, ok := TargetLanguages[name]
	return ok
}
