package textstem

import "strings"

// Stem implements the Porter stemming algorithm (Porter, 1980). It is the
// default stem function TextIndex uses when none is configured; callers
// may supply their own to satisfy spec §6.3's "stemming... supplied
// externally" contract.
func Stem(word string) string {
	w := strings.ToLower(word)
	if len(w) <= 2 {
		return w
	}

	w = step1a(w)
	w = step1b(w)
	w = step1c(w)
	w = step2(w)
	w = step3(w)
	w = step4(w)
	w = step5a(w)
	w = step5b(w)
	return w
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// isConsonant treats 'y' as a consonant when it is word-initial or
// preceded by a vowel, and as a vowel when preceded by a consonant, per
// Porter's definition.
func isConsonant(w string, i int) bool {
	c := w[i]
	if isVowel(c) {
		return false
	}
	if c != 'y' {
		return true
	}
	if i == 0 {
		return true
	}
	return !isConsonant(w, i-1)
}

// measure counts the number of consonant-vowel sequences (Porter's "m").
func measure(w string) int {
	n := 0
	i := 0
	for i < len(w) && isConsonant(w, i) {
		i++
	}
	for i < len(w) {
		for i < len(w) && !isConsonant(w, i) {
			i++
		}
		if i >= len(w) {
			break
		}
		for i < len(w) && isConsonant(w, i) {
			i++
		}
		n++
	}
	return n
}

func containsVowel(w string) bool {
	for i := range w {
		if !isConsonant(w, i) {
			return true
		}
	}
	return false
}

func endsDoubleConsonant(w string) bool {
	n := len(w)
	if n < 2 {
		return false
	}
	return w[n-1] == w[n-2] && isConsonant(w, n-1)
}

// endsCVC reports whether w ends consonant-vowel-consonant, where the
// final consonant is not w, x, or y.
func endsCVC(w string) bool {
	n := len(w)
	if n < 3 {
		return false
	}
	if !isConsonant(w, n-3) || isConsonant(w, n-2) || !isConsonant(w, n-1) {
		return false
	}
	switch w[n-1] {
	case 'w', 'x', 'y':
		return false
	}
	return true
}

func replaceSuffix(w, suffix, repl string, minMeasure int) (string, bool) {
	if !strings.HasSuffix(w, suffix) {
		return w, false
	}
	stem := strings.TrimSuffix(w, suffix)
	if measure(stem) < minMeasure {
		return w, false
	}
	return stem + repl, true
}

func step1a(w string) string {
	switch {
	case strings.HasSuffix(w, "sses"):
		return strings.TrimSuffix(w, "sses") + "ss"
	case strings.HasSuffix(w, "ies"):
		return strings.TrimSuffix(w, "ies") + "i"
	case strings.HasSuffix(w, "ss"):
		return w
	case strings.HasSuffix(w, "s"):
		return strings.TrimSuffix(w, "s")
	}
	return w
}

func step1b(w string) string {
	switch {
	case strings.HasSuffix(w, "eed"):
		stem := strings.TrimSuffix(w, "eed")
		if measure(stem) > 0 {
			return stem + "ee"
		}
		return w
	case strings.HasSuffix(w, "ed"):
		stem := strings.TrimSuffix(w, "ed")
		if containsVowel(stem) {
			return step1bCleanup(stem)
		}
		return w
	case strings.HasSuffix(w, "ing"):
		stem := strings.TrimSuffix(w, "ing")
		if containsVowel(stem) {
			return step1bCleanup(stem)
		}
		return w
	}
	return w
}

func step1bCleanup(stem string) string {
	switch {
	case strings.HasSuffix(stem, "at"), strings.HasSuffix(stem, "bl"), strings.HasSuffix(stem, "iz"):
		return stem + "e"
	case endsDoubleConsonant(stem) && !strings.HasSuffix(stem, "l") && !strings.HasSuffix(stem, "s") && !strings.HasSuffix(stem, "z"):
		return stem[:len(stem)-1]
	case measure(stem) == 1 && endsCVC(stem):
		return stem + "e"
	}
	return stem
}

func step1c(w string) string {
	if strings.HasSuffix(w, "y") {
		stem := strings.TrimSuffix(w, "y")
		if containsVowel(stem) {
			return stem + "i"
		}
	}
	return w
}

var step2Suffixes = []struct{ suffix, repl string }{
	{"ational", "ate"}, {"tional", "tion"}, {"enci", "ence"}, {"anci", "ance"},
	{"izer", "ize"}, {"abli", "able"}, {"alli", "al"}, {"entli", "ent"},
	{"eli", "e"}, {"ousli", "ous"}, {"ization", "ize"}, {"ation", "ate"},
	{"ator", "ate"}, {"alism", "al"}, {"iveness", "ive"}, {"fulness", "ful"},
	{"ousness", "ous"}, {"aliti", "al"}, {"iviti", "ive"}, {"biliti", "ble"},
}

func step2(w string) string {
	for _, s := range step2Suffixes {
		if out, ok := replaceSuffix(w, s.suffix, s.repl, 1); ok {
			return out
		}
	}
	return w
}

var step3Suffixes = []struct{ suffix, repl string }{
	{"icate", "ic"}, {"ative", ""}, {"alize", "al"}, {"iciti", "ic"},
	{"ical", "ic"}, {"ful", ""}, {"ness", ""},
}

func step3(w string) string {
	for _, s := range step3Suffixes {
		if out, ok := replaceSuffix(w, s.suffix, s.repl, 1); ok {
			return out
		}
	}
	return w
}

var step4Suffixes = []string{
	"al", "ance", "ence", "er", "ic", "able", "ible", "ant", "ement",
	"ment", "ent", "ion", "ou", "ism", "ate", "iti", "ous", "ive", "ize",
}

func step4(w string) string {
	for _, suffix := range step4Suffixes {
		if !strings.HasSuffix(w, suffix) {
			continue
		}
		stem := strings.TrimSuffix(w, suffix)
		if suffix == "ion" && !(strings.HasSuffix(stem, "s") || strings.HasSuffix(stem, "t")) {
			continue
		}
		if measure(stem) > 1 {
			return stem
		}
	}
	return w
}

func step5a(w string) string {
	if strings.HasSuffix(w, "e") {
		stem := strings.TrimSuffix(w, "e")
		if measure(stem) > 1 {
			return stem
		}
		if measure(stem) == 1 && !endsCVC(stem) {
			return stem
		}
	}
	return w
}

func step5b(w string) string {
	if measure(w) > 1 && endsDoubleConsonant(w) && strings.HasSuffix(w, "l") {
		return w[:len(w)-1]
	}
	return w
}
