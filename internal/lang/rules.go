package lang

import (
	"unicode/utf8"
)

// vietnamese chains by syllable: the first syllable of the next word
// must equal the last syllable of the previous one.
type vietnamese struct{ base }

func (vietnamese) Code() Code      { return Vietnamese }
func (vietnamese) TokenCount() int { return 2 }
func (vietnamese) MinLength() int  { return 3 }

func (vietnamese) ShapeValid(tokens []string) bool { return len(tokens) == 2 }

func (v vietnamese) Continuation(last string) string {
	return lastToken(v.Normalize(last))
}

func (v vietnamese) SuccessorPrefix(last string) string {
	c := v.Continuation(last)
	if c == "" {
		return ""
	}
	return c + " "
}

func (v vietnamese) Follows(candidate, last string) bool {
	tokens := v.Tokens(candidate)
	if len(tokens) == 0 {
		return false
	}
	return tokens[0] == v.Continuation(last)
}

// english chains by letter: the next word starts with the last letter
// of the previous one. Single letters are not words.
type english struct{ base }

func (english) Code() Code      { return English }
func (english) TokenCount() int { return 1 }
func (english) MinLength() int  { return 2 }

func (e english) ShapeValid(tokens []string) bool {
	return len(tokens) == 1 && utf8.RuneCountInString(tokens[0]) >= e.MinLength()
}

func (e english) Continuation(last string) string {
	w := e.Normalize(last)
	if w == "" {
		return ""
	}
	r, _ := utf8.DecodeLastRuneInString(w)
	return string(r)
}

func (e english) SuccessorPrefix(last string) string {
	return e.Continuation(last)
}

func (e english) Follows(candidate, last string) bool {
	w := e.Normalize(candidate)
	c := e.Continuation(last)
	if w == "" || c == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(w)
	return string(r) == c
}
