// ABOUTME: Closed enumerations for the support negotiation: language, category and prompt payloads
// ABOUTME: Payload strings are parsed once into a tagged value and matched exhaustively

package negotiation

// Language is the locale a ticket is handled in.
type Language int

const (
	LanguageUnset Language = iota
	LanguageItalian
	LanguageEnglish
)

// Languages lists the selectable languages in prompt order.
var Languages = []Language{LanguageItalian, LanguageEnglish}

// Flag returns the flag emoji shown in thread titles and prompts.
func (l Language) Flag() string {
	switch l {
	case LanguageItalian:
		return "🇮🇹"
	case LanguageEnglish:
		return "🇬🇧"
	default:
		return ""
	}
}

// Label returns the language's name in its own locale.
func (l Language) Label() string {
	switch l {
	case LanguageItalian:
		return "Italiano"
	case LanguageEnglish:
		return "English"
	default:
		return ""
	}
}

func (l Language) String() string {
	switch l {
	case LanguageItalian:
		return "it"
	case LanguageEnglish:
		return "en"
	default:
		return "unset"
	}
}

// Category is the kind of help a user asks for.
type Category int

const (
	CategoryUnset Category = iota
	CategoryBug
	CategoryHowTo
	CategoryOther
)

// Categories lists the selectable categories in prompt order.
var Categories = []Category{CategoryBug, CategoryHowTo, CategoryOther}

// String returns the label used in staff thread titles.
func (c Category) String() string {
	switch c {
	case CategoryBug:
		return "Bug"
	case CategoryHowTo:
		return "How to..."
	case CategoryOther:
		return "Other"
	default:
		return "unset"
	}
}

// Label returns the category's button label in lang.
func (c Category) Label(lang Language) string {
	if lang == LanguageItalian {
		switch c {
		case CategoryBug:
			return "Segnalazione Bug"
		case CategoryHowTo:
			return "Come fare..."
		case CategoryOther:
			return "Altro"
		}
	}
	switch c {
	case CategoryBug:
		return "Bug Report"
	case CategoryHowTo:
		return "How to..."
	case CategoryOther:
		return "Other"
	default:
		return ""
	}
}

// Emoji returns the reaction key a user picks the category with.
func (c Category) Emoji() string {
	switch c {
	case CategoryBug:
		return "🐛"
	case CategoryHowTo:
		return "❓"
	case CategoryOther:
		return "💬"
	default:
		return ""
	}
}

// Payload is the data carried by an interactive selection.
type Payload int

const (
	PayloadNone Payload = iota
	PayloadLanguageItalian
	PayloadLanguageEnglish
	PayloadCategoryBug
	PayloadCategoryHowTo
	PayloadCategoryOther
)

var payloadNames = map[Payload]string{
	PayloadLanguageItalian: "lang_it",
	PayloadLanguageEnglish: "lang_en",
	PayloadCategoryBug:     "ticket_bug",
	PayloadCategoryHowTo:   "ticket_how_to",
	PayloadCategoryOther:   "ticket_other",
}

// ParsePayload maps selection data to a Payload. Unknown or empty data
// yields PayloadNone and false.
func ParsePayload(data string) (Payload, bool) {
	for p, name := range payloadNames {
		if name == data {
			return p, true
		}
	}
	return PayloadNone, false
}

func (p Payload) String() string {
	return payloadNames[p]
}

// Language returns the language a payload selects.
func (p Payload) Language() (Language, bool) {
	switch p {
	case PayloadLanguageItalian:
		return LanguageItalian, true
	case PayloadLanguageEnglish:
		return LanguageEnglish, true
	default:
		return LanguageUnset, false
	}
}

// Category returns the category a payload selects.
func (p Payload) Category() (Category, bool) {
	switch p {
	case PayloadCategoryBug:
		return CategoryBug, true
	case PayloadCategoryHowTo:
		return CategoryHowTo, true
	case PayloadCategoryOther:
		return CategoryOther, true
	default:
		return CategoryUnset, false
	}
}

// LanguagePayload returns the payload that selects lang.
func LanguagePayload(lang Language) Payload {
	switch lang {
	case LanguageItalian:
		return PayloadLanguageItalian
	case LanguageEnglish:
		return PayloadLanguageEnglish
	default:
		return PayloadNone
	}
}

// CategoryPayload returns the payload that selects c.
func CategoryPayload(c Category) Payload {
	switch c {
	case CategoryBug:
		return PayloadCategoryBug
	case CategoryHowTo:
		return PayloadCategoryHowTo
	case CategoryOther:
		return PayloadCategoryOther
	default:
		return PayloadNone
	}
}
