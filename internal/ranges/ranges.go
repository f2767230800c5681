// Package ranges compares parsed vitals against static reference ranges.
package ranges

import (
	"fmt"
	"strconv"
	"strings"

	"medreport/internal/fields"
	"medreport/internal/models"
)

type Kind int

const (
	KindNumeric Kind = iota
	KindGendered
	KindBloodPressure
	KindQualitative
)

// Band is an inclusive interval. A nil bound is open.
type Band struct {
	Min *float64
	Max *float64
}

// Range is one row of the reference table.
type Range struct {
	Vital  string
	Kind   Kind
	Fields []fields.Field
	Unit   string

	Band   Band
	Male   Band
	Female Band

	SystolicMax  float64
	DiastolicMax float64

	Normal []string
}

func ptr(f float64) *float64 {
	return &f
}

// Table is the reference table in presentation order. Read-only.
var Table = []Range{
	{Vital: "Blood Pressure", Kind: KindBloodPressure, Fields: []fields.Field{fields.SystolicBP, fields.DiastolicBP},
		SystolicMax: 120, DiastolicMax: 80, Unit: "mmHg"},
	{Vital: "Heart Rate", Fields: []fields.Field{fields.HeartRate}, Band: Band{ptr(60), ptr(100)}, Unit: "bpm"},
	{Vital: "Respiratory Rate", Fields: []fields.Field{fields.RespiratoryRate}, Band: Band{ptr(12), ptr(20)}, Unit: "breaths/min"},
	{Vital: "Body Temperature", Fields: []fields.Field{fields.BodyTemperature}, Band: Band{ptr(36.1), ptr(37.2)}, Unit: "C"},
	{Vital: "SpO2", Fields: []fields.Field{fields.SpO2}, Band: Band{ptr(95), ptr(100)}, Unit: "%"},
	{Vital: "Fasting Glucose", Fields: []fields.Field{fields.FastingSugar}, Band: Band{ptr(70), ptr(99)}, Unit: "mg/dL"},
	{Vital: "Random Glucose", Fields: []fields.Field{fields.RandomSugar}, Band: Band{ptr(0), ptr(140)}, Unit: "mg/dL"},
	{Vital: "Hemoglobin", Kind: KindGendered, Fields: []fields.Field{fields.Hemoglobin},
		Male: Band{ptr(13), ptr(17)}, Female: Band{ptr(12), ptr(15)}, Band: Band{ptr(12), ptr(17)}, Unit: "g/dL"},
	{Vital: "Platelet Count", Fields: []fields.Field{fields.PlateletCount}, Band: Band{ptr(150000), ptr(450000)}, Unit: "/uL"},
	{Vital: "Blood Urea", Fields: []fields.Field{fields.Urea}, Band: Band{ptr(15), ptr(40)}, Unit: "mg/dL"},
	{Vital: "Serum Creatinine", Fields: []fields.Field{fields.Creatinine}, Band: Band{ptr(0.6), ptr(1.3)}, Unit: "mg/dL"},
	{Vital: "Total Cholesterol", Fields: []fields.Field{fields.CholesterolTotal}, Band: Band{Max: ptr(200)}, Unit: "mg/dL"},
	{Vital: "BMI", Fields: []fields.Field{fields.BMI}, Band: Band{ptr(18.5), ptr(24.9)}},
	{Vital: "Urine Sugar", Kind: KindQualitative, Fields: []fields.Field{fields.UrineSugar}, Normal: []string{"absent", "negative"}},
	{Vital: "HIV", Kind: KindQualitative, Fields: []fields.Field{fields.HIV}, Normal: []string{"non reactive", "negative"}},
	{Vital: "HBsAg", Kind: KindQualitative, Fields: []fields.Field{fields.HBsAg}, Normal: []string{"non reactive", "negative"}},
	{Vital: "VDRL", Kind: KindQualitative, Fields: []fields.Field{fields.VDRL}, Normal: []string{"non reactive", "negative"}},
}

var byField = func() map[fields.Field]int {
	m := map[fields.Field]int{}
	for i, r := range Table {
		for _, f := range r.Fields {
			m[f] = i
		}
	}
	return m
}()

// Lookup finds the range a field is compared against.
func Lookup(f fields.Field) (Range, bool) {
	i, ok := byField[f]
	if !ok {
		return Range{}, false
	}
	return Table[i], true
}

// Compare emits one entry per vital with a value, in the order the vitals
// first appear in p. Vitals without a value produce nothing.
func Compare(p *fields.Parsed) []models.ComparisonEntry {
	gender, _ := p.Get(fields.Gender)
	seen := map[int]bool{}
	var out []models.ComparisonEntry
	for _, v := range p.Values() {
		i, ok := byField[v.Field]
		if !ok || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, Table[i].Evaluate(p, gender))
	}
	return out
}

// Evaluate classifies the range's vital. A value that does not parse yields
// StatusUnknown.
func (r Range) Evaluate(p *fields.Parsed, gender string) models.ComparisonEntry {
	switch r.Kind {
	case KindBloodPressure:
		return r.bloodPressure(p)
	case KindQualitative:
		v, _ := p.Get(r.Fields[0])
		return r.qualitative(v)
	case KindGendered:
		v, _ := p.Get(r.Fields[0])
		return r.numeric(v, r.bandFor(gender))
	default:
		v, _ := p.Get(r.Fields[0])
		return r.numeric(v, r.Band)
	}
}

func (r Range) entry(value, ref string, s models.Status) models.ComparisonEntry {
	return models.ComparisonEntry{Vital: r.Vital, PatientValue: value, Reference: ref, Status: s}
}

// Blood pressure has no low branch: only a breach of either maximum counts.
func (r Range) bloodPressure(p *fields.Parsed) models.ComparisonEntry {
	sys, hasSys := p.Get(fields.SystolicBP)
	dia, hasDia := p.Get(fields.DiastolicBP)
	ref := fmt.Sprintf("<= %s/%s %s", format(r.SystolicMax), format(r.DiastolicMax), r.Unit)

	value := sys
	switch {
	case hasSys && hasDia:
		value = sys + "/" + dia
	case hasDia:
		value = "-/" + dia
	}

	status := models.StatusNormal
	if hasSys {
		n, ok := parseNumber(sys)
		if !ok {
			return r.entry(value, ref, models.StatusUnknown)
		}
		if n > r.SystolicMax {
			status = models.StatusHigh
		}
	}
	if hasDia {
		n, ok := parseNumber(dia)
		if !ok {
			return r.entry(value, ref, models.StatusUnknown)
		}
		if n > r.DiastolicMax {
			status = models.StatusHigh
		}
	}
	return r.entry(value, ref, status)
}

func (r Range) numeric(value string, b Band) models.ComparisonEntry {
	ref := b.describe(r.Unit)
	n, ok := parseNumber(value)
	if !ok {
		return r.entry(value, ref, models.StatusUnknown)
	}
	switch {
	case b.Min != nil && n < *b.Min:
		return r.entry(value, ref, models.StatusLow)
	case b.Max != nil && n > *b.Max:
		return r.entry(value, ref, models.StatusHigh)
	}
	return r.entry(value, ref, models.StatusNormal)
}

func (r Range) qualitative(value string) models.ComparisonEntry {
	ref := strings.Join(r.Normal, " / ")
	norm := strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(value, "-", " "))), " ")
	if norm == "" {
		return r.entry(value, ref, models.StatusUnknown)
	}
	for _, n := range r.Normal {
		if norm == n {
			return r.entry(value, ref, models.StatusNormal)
		}
	}
	return r.entry(value, ref, models.StatusAbnormal)
}

func (r Range) bandFor(gender string) Band {
	switch fields.NormalizeGender(gender) {
	case "Male":
		return r.Male
	case "Female":
		return r.Female
	}
	return r.Band
}

func (b Band) describe(unit string) string {
	var s string
	switch {
	case b.Min != nil && b.Max != nil:
		s = format(*b.Min) + " - " + format(*b.Max)
	case b.Max != nil:
		s = "<= " + format(*b.Max)
	case b.Min != nil:
		s = ">= " + format(*b.Min)
	}
	if unit != "" {
		s += " " + unit
	}
	return s
}

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func format(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
