package fields

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRowHasEveryColumn(t *testing.T) {
	inputs := []string{
		"",
		"Gender: Male\nBP: 150/95",
		"Patient ID: 9001\nAge: 33\nBlood Group: A-\nHb 14",
	}
	for _, in := range inputs {
		row := NewRow(Parse(in))
		require.Len(t, row.Values(), 24)
		m := row.Map()
		require.Len(t, m, 24)
		for _, f := range Schema {
			_, ok := m[string(f)]
			require.True(t, ok, "column %s missing", f)
		}
	}
}

func TestRowCategoricalNeverNumeric(t *testing.T) {
	row := NewRow(Parse("Patient ID: 9001\nGender: M\nBlood Group: A-"))
	require.Equal(t, "9001", row.Get(PatientID))
	_, ok := row.Numeric(PatientID)
	require.False(t, ok)
	require.True(t, IsCategorical(BloodGroup))
	require.False(t, IsCategorical(Age))
}

func TestRowIgnoresScreeningFields(t *testing.T) {
	row := NewRow(Parse("HIV: Non Reactive\nBMI 21"))
	require.Equal(t, "", row.Get(HIV))
	require.NotContains(t, row.Columns(), string(HIV))
	require.Equal(t, "21", row.Get(BMI))
}

func TestValidateRow(t *testing.T) {
	row := RowFromMap(map[string]string{"Age": "forty", "BMI": "22.1", "Gender": "Male"})
	require.Equal(t, []Field{Age}, ValidateRow(row))
}

func TestCSVQuotesEveryCell(t *testing.T) {
	row := NewRow(Parse("Patient ID: P-7\nAge: 50\nGender: F"))
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, row))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], `"PatientID","Age","Gender","BloodGroup",`))
	require.True(t, strings.HasPrefix(lines[1], `"P-7","50","Female","",`))
	require.Equal(t, 24, strings.Count(lines[1], `"`)/2)

	rows, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, row.Values(), rows[0].Values())
}

func TestReadCSVMissingHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	require.Error(t, err)
}

func TestParsedJSONKeepsOrder(t *testing.T) {
	p := Parse("BMI: 30\nAge: 40")
	b, err := json.Marshal(p)
	require.NoError(t, err)
	require.JSONEq(t, `[{"field":"BMI","value":"30"},{"field":"Age","value":"40"}]`, string(b))

	var back Parsed
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, p.Values(), back.Values())
}
