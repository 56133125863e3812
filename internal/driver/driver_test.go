package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retrotool/bassgo/internal/diag"
)

func writeSource(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestAssembleSimpleEmission(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "main.bass", "origin 0\nbase 0\ndb 1,2,3,4\n")

	d := New()
	d.OutputPath = filepath.Join(dir, "out.bin")
	require.NoError(t, d.Source(src))

	ok := d.Assemble(false)
	require.True(t, ok, "%+v", d.Diags.Errors)

	data, err := os.ReadFile(d.OutputPath)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestAssembleMacroInvocation(t *testing.T) {
	dir := t.TempDir()
	body := "macro add3(a,b,c) {\n" +
		"evaluate sum = {a}+{b}+{c}\n" +
		"db sum\n" +
		"}\n" +
		"origin 0; add3(1,2,3)\n"
	src := writeSource(t, dir, "macro.bass", body)

	d := New()
	d.OutputPath = filepath.Join(dir, "out.bin")
	require.NoError(t, d.Source(src))
	require.True(t, d.Assemble(false), "%+v", d.Diags.Errors)

	data, err := os.ReadFile(d.OutputPath)
	require.NoError(t, err)
	require.Equal(t, []byte{6}, data)
}

func TestAssembleDefinePreseed(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "main.bass", "origin 0; db {GREETING_LEN}\n")

	d := New()
	d.OutputPath = filepath.Join(dir, "out.bin")
	d.Define("GREETING_LEN", "5")
	require.NoError(t, d.Source(src))
	require.True(t, d.Assemble(false), "%+v", d.Diags.Errors)

	data, err := os.ReadFile(d.OutputPath)
	require.NoError(t, err)
	require.Equal(t, []byte{5}, data)
}

func TestAssembleConstantPreseed(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "main.bass", "origin 0; db BASE_OFFSET\n")

	d := New()
	d.OutputPath = filepath.Join(dir, "out.bin")
	d.Constant("BASE_OFFSET", 9)
	require.NoError(t, d.Source(src))
	require.True(t, d.Assemble(false), "%+v", d.Diags.Errors)

	data, err := os.ReadFile(d.OutputPath)
	require.NoError(t, err)
	require.Equal(t, []byte{9}, data)
}

func TestAssembleMissingSourceIsWarningNotFatal(t *testing.T) {
	d := New()
	err := d.Source(filepath.Join(t.TempDir(), "nope.bass"))
	require.Error(t, err)
	de, ok := err.(*diag.Error)
	require.True(t, ok, "%T", err)
	require.Equal(t, diag.KindWarning, de.Kind)
}

func TestAssembleUnrecognizedStatementIsFatal(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "main.bass", "origin 0; totally_bogus_mnemonic $ff\n")

	d := New()
	d.OutputPath = filepath.Join(dir, "out.bin")
	require.NoError(t, d.Source(src))
	require.False(t, d.Assemble(false))
	require.NotEmpty(t, d.Diags.Errors)
}

func TestAssembleNamespaceNesting(t *testing.T) {
	dir := t.TempDir()
	body := "namespace a {\n" +
		"namespace b {\n" +
		"constant x = 7\n" +
		"}\n" +
		"}\n" +
		"origin 0; db a.b.x\n"
	src := writeSource(t, dir, "ns.bass", body)

	d := New()
	d.OutputPath = filepath.Join(dir, "out.bin")
	require.NoError(t, d.Source(src))
	require.True(t, d.Assemble(false), "%+v", d.Diags.Errors)

	data, err := os.ReadFile(d.OutputPath)
	require.NoError(t, err)
	require.Equal(t, []byte{7}, data)
}
