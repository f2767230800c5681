package fields

import (
	"regexp"
	"strings"
)

// lookbehindSpan bounds how far before its label a blood group may sit.
const lookbehindSpan = 40

var (
	tokenRe     = regexp.MustCompile(`[A-Za-z][A-Za-z0-9/_+\-]{0,20}`)
	numRe       = regexp.MustCompile(`\d+(?:\.\d+)?`)
	pairRe      = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*(\d+(?:\.\d+)?)`)
	phraseRe    = regexp.MustCompile(`[A-Za-z][A-Za-z \-]{0,29}`)
	bgStrictRe  = regexp.MustCompile(`(?i)\b(?:AB|A|B|O)\s*[+\-]`)
	bgRelaxedRe = regexp.MustCompile(`(?i)\b(?:AB|A|B|O)\b\s*[+\-]?`)
)

// Window is the text a label's value is read from.
type Window struct {
	// Text runs from the end of the label to the next label (or end of text).
	Text string
	// Before holds up to lookbehindSpan bytes preceding the label.
	Before string
}

// Strategy is one step of a field's fallback chain. Apply returns nil when
// it does not match, and the values to assign otherwise.
type Strategy struct {
	Name  string
	apply func(w Window) []Value
}

func (s Strategy) Apply(w Window) []Value { return s.apply(w) }

func one(f Field, v string) []Value {
	if v == "" {
		return nil
	}
	return []Value{{Field: f, Value: v}}
}

func firstToken(f Field) Strategy {
	return Strategy{Name: "token", apply: func(w Window) []Value {
		return one(f, tokenRe.FindString(w.Text))
	}}
}

func bloodGroup(f Field, name string, re *regexp.Regexp, lookbehind bool) Strategy {
	return Strategy{Name: name, apply: func(w Window) []Value {
		if !lookbehind {
			return one(f, NormalizeBloodGroup(re.FindString(w.Text)))
		}
		all := re.FindAllString(w.Before, -1)
		if len(all) == 0 {
			return nil
		}
		return one(f, NormalizeBloodGroup(all[len(all)-1]))
	}}
}

func pair(first, second Field) Strategy {
	return Strategy{Name: "pair", apply: func(w Window) []Value {
		m := pairRe.FindStringSubmatch(w.Text)
		if m == nil {
			return nil
		}
		return []Value{{Field: first, Value: m[1]}, {Field: second, Value: m[2]}}
	}}
}

func number(f Field) Strategy {
	return Strategy{Name: "number", apply: func(w Window) []Value {
		return one(f, numRe.FindString(w.Text))
	}}
}

func phrase(f Field) Strategy {
	return Strategy{Name: "phrase", apply: func(w Window) []Value {
		return one(f, strings.TrimRight(phraseRe.FindString(w.Text), " -"))
	}}
}
