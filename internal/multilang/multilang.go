// Package multilang implements the language-tagged name container used
// throughout the hierarchy builder (spec §3, property P5), grounded on
// the C++ StringUtf8Multilang tested in
// original_source/coding/coding_tests/string_utf8_multilang_tests.cpp.
//
// A Name maps a small "language code" (a signed index into a fixed table
// of roughly a hundred languages, plus the distinguished entries
// "default" and "int_name") to a UTF-8 string. At most one string is
// kept per code; inserting a code a second time replaces the string.
package multilang

import (
	"fmt"
	"sort"
)

// Code is a signed 7-bit index into the language table.
type Code int8

// ControlFlow is the two-valued signal returned by a ForEach callback,
// standing in for early return from a callback (original_source's
// base::ControlFlow).
type ControlFlow int

const (
	Continue ControlFlow = iota
	Break
)

// langTable is the fixed table of language codes. Index 0 is the
// distinguished "default" code and index 1 is "int_name"; the remainder
// are ISO-639-ish codes, large enough to cover real OSM name:<lang> tags.
var langTable = buildLangTable()

func buildLangTable() []string {
	// "default" and "int_name" are distinguished per spec §3 and always
	// occupy the first two slots so DefaultCode/IntNameCode are stable.
	base := []string{
		"default", "int_name", "en", "ru", "fr", "de", "es", "it", "pt", "nl",
		"pl", "cs", "sk", "hu", "ro", "bg", "hr", "sr", "sl", "uk",
		"be", "lt", "lv", "et", "fi", "sv", "no", "da", "is", "el",
		"tr", "ar", "he", "fa", "ur", "hi", "bn", "ta", "te", "ml",
		"th", "vi", "id", "ms", "tl", "ja", "ko", "zh", "zh-Hans", "zh-Hant",
		"ka", "hy", "az", "kk", "uz", "tg", "ky", "tk", "mn", "bo",
		"my", "km", "lo", "si", "ne", "mr", "gu", "pa", "kn", "or",
		"as", "am", "ti", "sw", "so", "ha", "yo", "ig", "zu", "xh",
		"af", "sq", "mk", "bs", "mt", "ga", "gd", "cy", "eu", "ca",
		"gl", "oc", "br", "co", "fy", "lb", "eo", "la", "sa", "yi",
	}
	return base
}

// Distinguished codes, per spec §3.
const (
	DefaultCode Code = 0
	IntNameCode Code = 1
)

// LangIndex returns the Code for a language name (e.g. "en", "default"),
// or false if the name is not in the table.
func LangIndex(lang string) (Code, bool) {
	for i, name := range langTable {
		if name == lang {
			return Code(i), true
		}
	}
	return 0, false
}

// LangName returns the language name for a Code, or false if out of range.
func LangName(code Code) (string, bool) {
	if int(code) < 0 || int(code) >= len(langTable) {
		return "", false
	}
	return langTable[code], true
}

// EnglishCode is the Code of "en", used by GetEnglishOrTransliteratedName.
var EnglishCode, _ = LangIndex("en")

// Name is an insertion-order-irrelevant, code-keyed set of UTF-8 strings.
type Name struct {
	entries map[Code]string
}

// New returns an empty Name.
func New() Name {
	return Name{entries: make(map[Code]string)}
}

// AddString inserts or replaces the string for lang. Returns an error if
// lang is not a recognized language code.
func (n *Name) AddString(lang string, s string) error {
	code, ok := LangIndex(lang)
	if !ok {
		return fmt.Errorf("multilang: unrecognized language code %q", lang)
	}
	if n.entries == nil {
		n.entries = make(map[Code]string)
	}
	n.entries[code] = s
	return nil
}

// AddStringByCode is AddString but keyed directly by Code, used when the
// caller has already resolved the code (e.g. the region-info codec).
func (n *Name) AddStringByCode(code Code, s string) {
	if n.entries == nil {
		n.entries = make(map[Code]string)
	}
	n.entries[code] = s
}

// GetString returns the string for lang and whether it was present.
func (n Name) GetString(lang string) (string, bool) {
	code, ok := LangIndex(lang)
	if !ok {
		return "", false
	}
	s, ok := n.entries[code]
	return s, ok
}

// GetByCode returns the string for a Code directly.
func (n Name) GetByCode(code Code) (string, bool) {
	s, ok := n.entries[code]
	return s, ok
}

// Len reports the number of distinct codes with a string set.
func (n Name) Len() int {
	return len(n.entries)
}

// ForEach visits (code, string) pairs in ascending code order, stopping
// early if fn returns Break.
func (n Name) ForEach(fn func(code Code, s string) ControlFlow) {
	if len(n.entries) == 0 {
		return
	}
	codes := make([]Code, 0, len(n.entries))
	for c := range n.entries {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	for _, c := range codes {
		if fn(c, n.entries[c]) == Break {
			return
		}
	}
}

// GetEnglishOrTransliteratedName prefers the "en" string; failing that,
// it iterates codes (skipping "default") and returns the first one whose
// transliteration to Latin succeeds, matching
// StringUtf8MultilangNamable::GetEnglishOrTransliteratedName.
//
// transliterate is injected by the caller since Latin transliteration is
// an external collaborator (spec §1: "the multi-language string
// container... out of scope" covers transliteration tables) — pass nil
// to skip the transliteration fallback and rely on "en" only.
func (n Name) GetEnglishOrTransliteratedName(transliterate func(code Code, s string) (string, bool)) string {
	if s, ok := n.GetByCode(EnglishCode); ok && s != "" {
		return s
	}
	if transliterate == nil {
		return ""
	}
	var result string
	n.ForEach(func(code Code, s string) ControlFlow {
		if code == DefaultCode {
			return Continue
		}
		if out, ok := transliterate(code, s); ok {
			result = out
			return Break
		}
		return Continue
	})
	return result
}
