package fields

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Rule is what a label resolves to: the field it identifies and the ordered
// extraction strategies tried against its window.
type Rule struct {
	Field      Field
	Strategies []Strategy
}

type labelRule struct {
	label string
	rule  Rule
}

// Builder collects label registrations. Build freezes them into an Index.
type Builder struct {
	entries []labelRule
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) add(f Field, strategies []Strategy, labels ...string) *Builder {
	for _, l := range labels {
		b.entries = append(b.entries, labelRule{label: l, rule: Rule{Field: f, Strategies: strategies}})
	}
	return b
}

// Token registers a categorical field read as the first alphabetic-leading
// token of the window. Unlike blood group there is no lookbehind: the text
// before a PatientID or Gender label is usually another field's value.
func (b *Builder) Token(f Field, labels ...string) *Builder {
	return b.add(f, []Strategy{firstToken(f)}, labels...)
}

// BloodGroupLabels registers a blood group field (strict, then relaxed, then lookbehind).
func (b *Builder) BloodGroupLabels(f Field, labels ...string) *Builder {
	return b.add(f, []Strategy{
		bloodGroup(f, "blood_group_strict", bgStrictRe, false),
		bloodGroup(f, "blood_group_relaxed", bgRelaxedRe, false),
		bloodGroup(f, "blood_group_strict_lookbehind", bgStrictRe, true),
		bloodGroup(f, "blood_group_relaxed_lookbehind", bgRelaxedRe, true),
	}, labels...)
}

// Pair registers a paired vital: a "x / y" value sets first and second, a
// lone number sets single only.
func (b *Builder) Pair(f, first, second, single Field, labels ...string) *Builder {
	return b.add(f, []Strategy{pair(first, second), number(single)}, labels...)
}

func (b *Builder) Number(f Field, labels ...string) *Builder {
	return b.add(f, []Strategy{number(f)}, labels...)
}

// Phrase registers a qualitative result such as "Non Reactive".
func (b *Builder) Phrase(f Field, labels ...string) *Builder {
	return b.add(f, []Strategy{phrase(f)}, labels...)
}

// Index is the immutable label registry and its compiled match pattern.
// It is safe for concurrent use.
type Index struct {
	rules   map[string]Rule
	labels  []string
	pattern *regexp.Regexp
}

// Build validates the registrations. A label may identify only one field.
func (b *Builder) Build() (*Index, error) {
	idx := &Index{rules: make(map[string]Rule, len(b.entries))}
	for _, e := range b.entries {
		key := labelKey(e.label)
		if key == "" {
			return nil, fmt.Errorf("empty label for field %s", e.rule.Field)
		}
		if prev, ok := idx.rules[key]; ok {
			if prev.Field != e.rule.Field {
				return nil, fmt.Errorf("label %q maps to both %s and %s", e.label, prev.Field, e.rule.Field)
			}
			continue
		}
		idx.rules[key] = e.rule
		idx.labels = append(idx.labels, key)
	}
	if len(idx.labels) == 0 {
		return nil, fmt.Errorf("label catalog is empty")
	}

	// Longer labels first so "Blood Pressure" wins over anything shorter at
	// the same position. Ties keep registration order.
	sort.SliceStable(idx.labels, func(i, j int) bool { return len(idx.labels[i]) > len(idx.labels[j]) })

	alts := make([]string, 0, len(idx.labels))
	for _, l := range idx.labels {
		alts = append(alts, labelPattern(l))
	}
	pattern, err := regexp.Compile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
	if err != nil {
		return nil, fmt.Errorf("compile label pattern: %w", err)
	}
	idx.pattern = pattern
	return idx, nil
}

// MustBuild is Build for static catalogs.
func MustBuild(b *Builder) *Index {
	idx, err := b.Build()
	if err != nil {
		panic(err)
	}
	return idx
}

var defaultIndex = MustBuild(DefaultCatalog())

// Default returns the shared index built from DefaultCatalog.
func Default() *Index { return defaultIndex }

// Labels returns the registered lowercase labels, longest first.
func (i *Index) Labels() []string {
	return append([]string(nil), i.labels...)
}

// Resolve maps matched label text to its rule. The exact lowercase label
// always wins; containment is only consulted when no exact entry exists.
func (i *Index) Resolve(label string) (Rule, bool) {
	key := labelKey(label)
	if r, ok := i.rules[key]; ok {
		return r, true
	}
	for _, l := range i.labels {
		if strings.Contains(key, l) {
			return i.rules[l], true
		}
	}
	return Rule{}, false
}

// FieldFor is Resolve without the strategies.
func (i *Index) FieldFor(label string) (Field, bool) {
	r, ok := i.Resolve(label)
	return r.Field, ok
}

// labelPattern matches l as a whole word. Word boundaries are only asserted
// at edges that are word characters, so "Blood Glucose (Fasting / Random)"
// still matches when a colon follows the closing parenthesis.
func labelPattern(l string) string {
	words := strings.Fields(l)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	p := strings.Join(words, `\s+`)
	if isWordByte(l[0]) {
		p = `\b` + p
	}
	if isWordByte(l[len(l)-1]) {
		p += `\b`
	}
	return p
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func labelKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
