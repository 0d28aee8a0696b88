package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ai-text-editor-be/pkg/proposal"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadProposalYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "p.yaml", "kind: multi_edit\nedits:\n  - old_fragment: teh\n    new_fragment: the\n")

	p, err := loadProposal(path)
	require.NoError(t, err)
	assert.Equal(t, proposal.KindMultiEdit, p.Kind)
	assert.Equal(t, []proposal.Edit{{OldFragment: "teh", NewFragment: "the"}}, p.Edits)
}

func TestApplyWritesDocument(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "notes.txt", "first line\nteh second line\n")
	prop := writeFile(t, dir, "p.json", `{"kind":"single_edit","old_fragment":"teh second","new_fragment":"the second"}`)

	out, err := run(t, "apply", doc, prop)
	require.NoError(t, err)
	assert.Contains(t, out, "-teh second line")
	assert.Contains(t, out, "+the second line")
	assert.Contains(t, out, "1 added, 1 removed")

	data, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Equal(t, "first line\nthe second line\n", string(data))
}

func TestApplyDryRunLeavesDocument(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "notes.txt", "alpha beta")
	prop := writeFile(t, dir, "p.json", `{"kind":"full_replace","new_document":"gamma"}`)

	_, err := run(t, "apply", "--dry-run", doc, prop)
	require.NoError(t, err)

	data, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Equal(t, "alpha beta", string(data))
}

func TestApplyReportsAmbiguity(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "notes.txt", "a b a")
	prop := writeFile(t, dir, "p.json", `{"kind":"single_edit","old_fragment":"a","new_fragment":"c"}`)

	_, err := run(t, "apply", doc, prop)
	require.Error(t, err)
	assert.True(t, errors.Is(err, proposal.ErrAmbiguousFragment))

	data, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Equal(t, "a b a", string(data))
}

func TestDiffNoChanges(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "same")
	b := writeFile(t, dir, "b.txt", "same")

	out, err := run(t, "diff", a, b)
	require.NoError(t, err)
	assert.Equal(t, "no changes\n", out)
}
