package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTOML(t *testing.T) {
	data := []byte(`
profile = """
Semiconductor analyst covering data center accelerators.
"""
goal = "Find guidance changes"
density = 0.2
pages = "1-3"
`)
	p, err := Parse(data, ".toml")
	require.NoError(t, err)
	assert.Equal(t, "Semiconductor analyst covering data center accelerators.", p.Profile)
	assert.Equal(t, "Find guidance changes", p.Goal)
	assert.Equal(t, 0.2, p.Density)
	assert.Equal(t, "1-3", p.Pages)
	assert.Zero(t, p.Threshold)
}

func TestParseYAML(t *testing.T) {
	data := []byte("profile: |\n  Credit analyst\ngoal: covenant risk\nthreshold: 0.7\n")
	p, err := Parse(data, ".YML")
	require.NoError(t, err)
	assert.Equal(t, "Credit analyst", p.Profile)
	assert.Equal(t, "covenant risk", p.Goal)
	assert.Equal(t, 0.7, p.Threshold)
}

func TestParsePlainText(t *testing.T) {
	p, err := Parse([]byte("  just an analyst \n"), ".txt")
	require.NoError(t, err)
	assert.Equal(t, "just an analyst", p.Profile)
	assert.Empty(t, p.Goal)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("goal = \"x\""), ".toml")
	assert.ErrorIs(t, err, ErrEmptyProfile)

	_, err = Parse([]byte("profile = "), ".toml")
	assert.Error(t, err)

	_, err = Parse([]byte("profile: a\ndensity: 2\n"), ".yaml")
	assert.ErrorContains(t, err, "density")

	_, err = Parse([]byte("profile: a\nthreshold: -0.1\n"), ".yaml")
	assert.ErrorContains(t, err, "threshold")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reader.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profile: Equity analyst\n"), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Equity analyst", p.Profile)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
