package fields

import (
	"strings"
)

// Parser extracts fields from report text against an Index.
type Parser struct {
	index *Index
}

func NewParser(index *Index) *Parser {
	if index == nil {
		index = defaultIndex
	}
	return &Parser{index: index}
}

var defaultParser = NewParser(defaultIndex)

// Parse runs the default parser.
func Parse(text string) *Parsed { return defaultParser.Parse(text) }

// Parse never fails: text without any recognizable label yields an empty
// result. Output is a pure function of text.
func (p *Parser) Parse(text string) *Parsed {
	out := NewParsed()
	if strings.TrimSpace(text) == "" {
		return out
	}
	locs := p.index.pattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		p.parseLines(text, out)
	} else {
		p.parseLabels(text, locs, out)
	}
	Normalize(out)
	return out
}

func (p *Parser) parseLabels(text string, locs [][]int, out *Parsed) {
	for i, loc := range locs {
		rule, ok := p.index.Resolve(text[loc[0]:loc[1]])
		if !ok || out.Has(rule.Field) {
			continue
		}
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		start := loc[0] - lookbehindSpan
		if start < 0 {
			start = 0
		}
		apply(rule, Window{
			Text:   strings.TrimSpace(text[loc[1]:end]),
			Before: text[start:loc[0]],
		}, out)
	}
}

// parseLines handles text where no label stands on word boundaries, such as
// "bp120/80". Each line contributes at most one field: the longest label it
// contains whose field is still unset.
func (p *Parser) parseLines(text string, out *Parsed) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, label := range p.index.labels {
			pos := indexFold(line, label)
			if pos < 0 {
				continue
			}
			rule := p.index.rules[label]
			if out.Has(rule.Field) {
				continue
			}
			apply(rule, Window{
				Text:   strings.TrimSpace(line[pos+len(label):]),
				Before: line[:pos],
			}, out)
			break
		}
	}
}

// apply runs the rule's strategies in order and keeps the first that matches.
// Fields already set are left alone, so paired values never overwrite.
func apply(rule Rule, w Window, out *Parsed) {
	for _, s := range rule.Strategies {
		vals := s.Apply(w)
		if len(vals) == 0 {
			continue
		}
		for _, v := range vals {
			out.Set(v.Field, v.Value)
		}
		return
	}
}

// indexFold is a case-insensitive strings.Index for ASCII labels. Offsets
// are byte offsets into s.
func indexFold(s, label string) int {
	n := len(label)
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], label) {
			return i
		}
	}
	return -1
}
