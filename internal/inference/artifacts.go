// Package inference runs the trained diagnosis classifier over a patient row.
//
// A Service is built once from five JSON artifacts that live in one
// directory. Loading validates them against each other; a Service either
// has all of them or does not exist.
package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"medreport/internal/util"
)

const (
	ImputerFile  = "imputer.json"
	EncodersFile = "cat_encoders.json"
	ColumnsFile  = "training_columns.json"
	EnsembleFile = "ensemble.json"
	TargetFile   = "label_encoder.json"
)

// Files lists the artifacts required in an artifacts directory.
var Files = []string{ImputerFile, EncodersFile, ColumnsFile, EnsembleFile, TargetFile}

type ImputerPackage struct {
	NumericCols     []string           `json:"numeric_cols"`
	CategoricalCols []string           `json:"categorical_cols"`
	NumImputer      NumericImputer     `json:"num_imputer"`
	CatImputer      CategoricalImputer `json:"cat_imputer"`
}

// Artifacts is the on-disk form of a trained model.
type Artifacts struct {
	Imputer  ImputerPackage
	Encoders map[string]LabelEncoder
	Columns  []string
	Model    Ensemble
	Target   LabelEncoder
}

// Load reads and validates every artifact in dir. All failures are reported
// together and wrap util.ErrArtifactLoad.
func Load(dir string) (*Service, error) {
	a, err := ReadArtifacts(dir)
	if err != nil {
		return nil, err
	}
	return NewService(a)
}

func ReadArtifacts(dir string) (Artifacts, error) {
	var a Artifacts
	targets := map[string]any{
		ImputerFile:  &a.Imputer,
		EncodersFile: &a.Encoders,
		ColumnsFile:  &a.Columns,
		EnsembleFile: &a.Model,
		TargetFile:   &a.Target,
	}
	var errs []error
	for _, name := range Files {
		if err := readJSON(filepath.Join(dir, name), targets[name]); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", util.ErrArtifactLoad, name, err))
		}
	}
	if len(errs) > 0 {
		return Artifacts{}, errors.Join(errs...)
	}
	return a, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Save writes a into dir, one atomic write per file.
func Save(dir string, a Artifacts) error {
	values := map[string]any{
		ImputerFile:  a.Imputer,
		EncodersFile: a.Encoders,
		ColumnsFile:  a.Columns,
		EnsembleFile: a.Model,
		TargetFile:   a.Target,
	}
	for _, name := range Files {
		if err := util.WriteJSONAtomic(filepath.Join(dir, name), values[name]); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the artifacts for internal consistency.
func (a Artifacts) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{util.ErrArtifactLoad}, args...)...))
	}

	if len(a.Columns) == 0 {
		fail("training column list is empty")
	}
	kind := map[string]string{}
	for _, c := range a.Imputer.NumericCols {
		kind[c] = "numeric"
	}
	for _, c := range a.Imputer.CategoricalCols {
		if kind[c] != "" {
			fail("column %s is both numeric and categorical", c)
		}
		kind[c] = "categorical"
	}
	seen := map[string]bool{}
	for _, c := range a.Columns {
		if seen[c] {
			fail("training column %s listed twice", c)
		}
		seen[c] = true
		if kind[c] == "" {
			fail("training column %s has no imputer", c)
		}
	}
	if err := a.Imputer.NumImputer.validate(len(a.Imputer.NumericCols)); err != nil {
		fail("numeric imputer: %v", err)
	}
	if err := a.Imputer.CatImputer.validate(len(a.Imputer.CategoricalCols)); err != nil {
		fail("categorical imputer: %v", err)
	}

	cols := make([]string, 0, len(a.Encoders))
	for c := range a.Encoders {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	for _, c := range cols {
		if kind[c] != "categorical" {
			fail("encoder for %s which is not a categorical column", c)
		}
		if len(a.Encoders[c].Classes) == 0 {
			fail("encoder for %s has no classes", c)
		}
	}
	for _, c := range a.Imputer.CategoricalCols {
		if _, ok := a.Encoders[c]; !ok && seen[c] {
			fail("categorical column %s has no encoder", c)
		}
	}

	if len(a.Target.Classes) == 0 {
		fail("target label encoder has no classes")
	}
	if err := a.Model.validate(len(a.Columns)); err != nil {
		fail("ensemble: %v", err)
	}
	return errors.Join(errs...)
}
