package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shapeq/internal/compiler"
	"github.com/roach88/shapeq/internal/ir"
	"github.com/roach88/shapeq/internal/shape"
)

const shapesDir = "testdata/shapes"

// writeShapes writes src as the only CUE file of a fresh directory.
func writeShapes(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shapes.cue"), []byte(src), 0644))
	return dir
}

func TestCompileValidShapes(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{shapesDir})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "✓ Compiled 4 shape(s)")
	assert.Contains(t, output, "placeOfBirth")
	assert.Contains(t, output, "| password")
}

func TestCompileValidShapesJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{shapesDir})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	names := make([]string, len(resp.Data.Shapes))
	for i, d := range resp.Data.Shapes {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"Nameable", "City", "Address", "Person"}, names)
}

func TestCompileOutputToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "shapes.json")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{shapesDir, "--output", outputFile})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Wrote descriptors to")

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Shapes, 4)

	person := result.Shapes[3]
	assert.Equal(t, "Person", person.Name)
	assert.Equal(t, []string{"Nameable"}, person.Extends)
	pw, ok := person.Accessor("password")
	require.True(t, ok)
	assert.False(t, pw.Queryable)
}

func TestCompileNonExistentDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/shapes"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E005]")
}

func TestCompileEmptyDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "no CUE files found")
}

func TestCompileInvalidShapes(t *testing.T) {
	dir := writeShapes(t, `package bad

shape: Person: {
	extends: "Mammal"
	association: placeOfBirth: "City"
}
`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "compilation failed with 2 error(s)")

	output := buf.String()
	assert.Contains(t, output, "✗ Compilation failed")
	assert.Contains(t, output, compiler.ErrUnknownSupertype)
	assert.Contains(t, output, compiler.ErrUnknownTarget)
}

func TestCompileInvalidShapesJSON(t *testing.T) {
	dir := writeShapes(t, `package bad

shape: Person: association: placeOfBirth: "City"
`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, compiler.ErrUnknownTarget, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, `unknown shape "City"`)
}

func TestCompileCUESyntaxError(t *testing.T) {
	dir := writeShapes(t, "package bad\n\nshape: Person: {\n")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E004]")
}

func TestCompileVerboseOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Verbose: true}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{shapesDir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, errBuf.String(), "Found 1 CUE file(s)")
	assert.Contains(t, errBuf.String(), "Compiling shape: Person")
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "b.cue"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), nil, 0644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestCalculateStats(t *testing.T) {
	result := &CompilationResult{Shapes: []*shape.Descriptor{
		shape.Define("City").Property("name", shape.Scalar(ir.KindString)).Descriptor(),
		shape.Define("Person").
			Property("name", shape.Scalar(ir.KindString)).
			Hidden("password", shape.Scalar(ir.KindString)).
			Association("placeOfBirth", "City").
			ManyAssociation("children", "Person").
			Descriptor(),
	}}

	stats := calculateStats(result)
	assert.Equal(t, CompilationStats{
		ShapeCount:       2,
		PropertyCount:    3,
		AssociationCount: 2,
		HiddenCount:      1,
	}, stats)
}
