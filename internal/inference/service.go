package inference

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"medreport/internal/fields"
	"medreport/internal/util"
)

// Prediction is the classifier output for one row.
type Prediction struct {
	Label    string    `json:"label"`
	Code     int       `json:"code"`
	Decoded  bool      `json:"decoded"`
	Scores   []float64 `json:"scores"`
	Features []float64 `json:"-"`
}

// Service holds validated artifacts. It is immutable and safe for
// concurrent use.
type Service struct {
	a       Artifacts
	catSlot map[string]int
	numSlot map[string]int
}

// NewService validates a and returns a ready Service.
func NewService(a Artifacts) (*Service, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	s := &Service{a: a, catSlot: map[string]int{}, numSlot: map[string]int{}}
	for i, c := range a.Imputer.NumericCols {
		s.numSlot[c] = i
	}
	for i, c := range a.Imputer.CategoricalCols {
		s.catSlot[c] = i
	}
	return s, nil
}

func (s *Service) Columns() []string { return append([]string(nil), s.a.Columns...) }

func (s *Service) Classes() []string { return append([]string(nil), s.a.Target.Classes...) }

// Transform projects row onto the training columns and returns the encoded
// feature vector in training column order.
func (s *Service) Transform(row fields.Row) ([]float64, error) {
	num := make([]float64, len(s.a.Imputer.NumericCols))
	for i, c := range s.a.Imputer.NumericCols {
		num[i] = toNumber(row.Get(fields.Field(c)))
	}
	s.a.Imputer.NumImputer.Transform(num)

	cat := make([]string, len(s.a.Imputer.CategoricalCols))
	for i, c := range s.a.Imputer.CategoricalCols {
		cat[i] = strings.TrimSpace(row.Get(fields.Field(c)))
	}
	s.a.Imputer.CatImputer.Transform(cat)

	out := make([]float64, len(s.a.Columns))
	for i, c := range s.a.Columns {
		if j, ok := s.numSlot[c]; ok {
			out[i] = num[j]
			continue
		}
		j, ok := s.catSlot[c]
		if !ok {
			return nil, fmt.Errorf("%w: column %s has no imputer", util.ErrInference, c)
		}
		code, _ := s.a.Encoders[c].Encode(cat[j])
		out[i] = float64(code)
	}
	return out, nil
}

// Predict classifies row. Failures are confined to this call and reported
// as util.ErrInference; the Service stays usable.
func (s *Service) Predict(ctx context.Context, row fields.Row) (pred Prediction, err error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			pred = Prediction{}
			err = fmt.Errorf("%w: %v", util.ErrInference, r)
		}
	}()

	x, err := s.Transform(row)
	if err != nil {
		return Prediction{}, err
	}
	idx, scores := s.a.Model.Predict(x)
	code := s.a.Model.Classes[idx]
	label, ok := s.a.Target.Decode(code)
	if !ok {
		label = strconv.Itoa(code)
	}
	return Prediction{Label: label, Code: code, Decoded: ok, Scores: scores, Features: x}, nil
}

func toNumber(v string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsInf(n, 0) {
		return math.NaN()
	}
	return n
}
