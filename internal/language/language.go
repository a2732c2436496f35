package language

import "strings"

type entry struct {
	code2     string   // ISO 639-1
	code3     string   // ISO 639-2/T
	alt3      string   // ISO 639-2/B where it differs
	tesseract string   // traineddata name
	display   string
	words     []string
}

var languages = []entry{
	{"en", "eng", "", "eng", "English", []string{"english"}},
	{"de", "deu", "ger", "deu", "German", []string{"german", "deutsch"}},
	{"fr", "fra", "fre", "fra", "French", []string{"french"}},
	{"es", "spa", "", "spa", "Spanish", []string{"spanish"}},
	{"it", "ita", "", "ita", "Italian", []string{"italian"}},
	{"pt", "por", "", "por", "Portuguese", []string{"portuguese"}},
	{"nl", "nld", "dut", "nld", "Dutch", []string{"dutch"}},
	{"pl", "pol", "", "pol", "Polish", []string{"polish"}},
	{"ru", "rus", "", "rus", "Russian", []string{"russian"}},
	{"tr", "tur", "", "tur", "Turkish", []string{"turkish"}},
	{"ar", "ara", "", "ara", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "hin", "Hindi", []string{"hindi"}},
	{"zh", "zho", "chi", "chi_sim", "Chinese", []string{"chinese"}},
	{"ja", "jpn", "", "jpn", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "kor", "Korean", []string{"korean"}},
	{"sv", "swe", "", "swe", "Swedish", []string{"swedish"}},
	{"da", "dan", "", "dan", "Danish", []string{"danish"}},
	{"no", "nor", "", "nor", "Norwegian", []string{"norwegian"}},
	{"fi", "fin", "", "fin", "Finnish", []string{"finnish"}},
}

var index = func() map[string]*entry {
	m := make(map[string]*entry, len(languages)*4)
	for i := range languages {
		e := &languages[i]
		m[e.code2] = e
		m[e.code3] = e
		m[e.tesseract] = e
		if e.alt3 != "" {
			m[e.alt3] = e
		}
		for _, w := range e.words {
			m[w] = e
		}
	}
	return m
}()

func lookup(code string) *entry {
	return index[strings.ToLower(strings.TrimSpace(code))]
}

// ToISO2 converts a recognized code or word to ISO 639-1. Unknown two-letter
// codes pass through; anything else unknown yields "".
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// ToTesseract converts a recognized code or word to the tesseract traineddata
// name. Unknown input is returned lowercased so custom traineddata still works.
func ToTesseract(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if e := lookup(code); e != nil {
		return e.tesseract
	}
	return code
}

// DisplayName returns a human-readable language name.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Auto"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}
