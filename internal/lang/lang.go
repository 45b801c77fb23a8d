// internal/lang/lang.go
//
// Language strategies for the word-chain game.
//
// Each supported language decides:
//   - how raw chat text is normalised and split into tokens,
//   - what a playable word looks like (its "shape"),
//   - which words may follow the previous one (the chaining rule).
//
// Vietnamese chains syllables: "con mèo" → "mèo ...".
// English chains letters:      "apple"   → "e...".
//
// A Language is selected once per session from its Code and passed around
// instead of branching on "vi"/"en" strings.

package lang

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Code identifies a supported language.
type Code string

const (
	Vietnamese Code = "vi"
	English    Code = "en"
)

// ErrUnsupported is returned for language codes with no strategy.
var ErrUnsupported = errors.New("lang: unsupported language")

// Language is the per-language chaining strategy.
type Language interface {
	// Code returns the language code ("vi", "en").
	Code() Code

	// Normalize lowercases, NFC-normalises, trims and collapses inner whitespace.
	Normalize(s string) string

	// Tokens splits normalised text on whitespace.
	Tokens(s string) []string

	// TokenCount is the exact number of tokens a playable word has.
	TokenCount() int

	// MinLength is the minimum rune count of a playable word.
	MinLength() int

	// ShapeValid reports whether tokens form a playable word.
	ShapeValid(tokens []string) bool

	// Continuation is what the next word must start with, given the last word.
	Continuation(last string) string

	// SuccessorPrefix is the literal prefix every successor of last carries.
	// Used by dictionaries for prefix lookups.
	SuccessorPrefix(last string) string

	// Follows reports whether candidate legally continues last.
	Follows(candidate, last string) bool
}

var registry = map[Code]Language{
	Vietnamese: vietnamese{base{tag: language.Vietnamese}},
	English:    english{base{tag: language.English}},
}

// Get returns the strategy for c.
func Get(c Code) (Language, error) {
	if l, ok := registry[c]; ok {
		return l, nil
	}
	return nil, ErrUnsupported
}

// MustGet is Get for codes known at compile time.
func MustGet(c Code) Language {
	l, err := Get(c)
	if err != nil {
		panic(err)
	}
	return l
}

// Parse converts user input ("VI", " en ") into a supported Code.
func Parse(s string) (Code, error) {
	c := Code(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := registry[c]; !ok {
		return "", ErrUnsupported
	}
	return c, nil
}

// All lists the supported languages in a stable order.
func All() []Language {
	return []Language{registry[Vietnamese], registry[English]}
}

// base carries the normalisation shared by every language.
type base struct {
	tag language.Tag
}

func (b base) Normalize(s string) string {
	// cases.Caser is stateful; one per call.
	lower := cases.Lower(b.tag).String(norm.NFC.String(s))
	return strings.Join(strings.Fields(lower), " ")
}

func (b base) Tokens(s string) []string {
	return strings.Fields(b.Normalize(s))
}

// lastToken returns the final whitespace-separated token of s.
func lastToken(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[len(f)-1]
}
