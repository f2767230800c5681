package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeDocx(t *testing.T, path string, lines ...string) {
	t.Helper()
	var body strings.Builder
	for _, l := range lines {
		body.WriteString("<w:p><w:r><w:t>" + l + "</w:t></w:r></w:p>")
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInterpretJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labs.docx")
	writeDocx(t, path, "Gender: Male", "BP: 150/95", "Heart Rate: 105 bpm", "BMI: 31.2")
	outDir := filepath.Join(dir, "out")

	stdout, err := run(t, "interpret", path, "--json", "--out", outDir)
	require.NoError(t, err)

	var got interpretOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got.Comparison, 3)
	require.Equal(t, "Male", got.Patient.Gender)
	require.Contains(t, got.Summary, "Please consult a medical professional.")
	require.FileExists(t, got.PDFPath)
	require.True(t, strings.HasPrefix(got.PDFPath, outDir))
}

func TestInterpretText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labs.docx")
	writeDocx(t, path, "Heart Rate: 72", "SpO2: 98")

	stdout, err := run(t, "interpret", path)
	require.NoError(t, err)
	require.Contains(t, stdout, "VITAL")
	require.Contains(t, stdout, "Heart Rate")
	require.Contains(t, stdout, "All examined vitals are within normal ranges.")
	require.NotContains(t, stdout, "Summary PDF")
}

func TestInterpretErrors(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(png, []byte("x"), 0o644))

	_, err := run(t, "interpret", png)
	require.ErrorContains(t, err, "unsupported")

	_, err = run(t, "interpret")
	require.Error(t, err)

	_, err = run(t, "interpret", filepath.Join(dir, "missing.pdf"))
	require.Error(t, err)
}

func TestArtifactsCheckMissingDir(t *testing.T) {
	_, err := run(t, "artifacts", "check", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
