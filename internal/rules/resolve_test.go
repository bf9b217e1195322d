package rules

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/tidydl/internal/fsops"
)

func newResolverFS(t *testing.T, files ...string) fsops.FS {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/home/user", 0755))
	require.NoError(t, mem.MkdirAll("/data/dl/show/season1", 0755))
	for _, f := range files {
		require.NoError(t, afero.WriteFile(mem, f, []byte("remove: x\n"), 0644))
	}
	return fsops.NewAferoFS(mem)
}

func TestResolver_NearestAncestorWins(t *testing.T) {
	fsys := newResolverFS(t, "/data/.cleanup-patterns.yml", "/data/dl/.cleanup-patterns.yml", "/home/user/.cleanup-patterns.yml")
	r := NewResolver(fsys, "", "/home/user")

	path, err := r.Resolve("/data/dl/show/season1", "")
	require.NoError(t, err)
	assert.Equal(t, "/data/dl/.cleanup-patterns.yml", path)
}

func TestResolver_TargetItself(t *testing.T) {
	fsys := newResolverFS(t, "/data/dl/show/.cleanup-patterns.yml", "/data/.cleanup-patterns.yml")
	r := NewResolver(fsys, "", "")

	path, err := r.Resolve("/data/dl/show", "")
	require.NoError(t, err)
	assert.Equal(t, "/data/dl/show/.cleanup-patterns.yml", path)
}

func TestResolver_HomeFallback(t *testing.T) {
	fsys := newResolverFS(t, "/home/user/.cleanup-patterns.yml")
	r := NewResolver(fsys, "", "/home/user")

	path, err := r.Resolve("/data/dl", "")
	require.NoError(t, err)
	assert.Equal(t, "/home/user/.cleanup-patterns.yml", path)
}

func TestResolver_NothingFound(t *testing.T) {
	fsys := newResolverFS(t)
	r := NewResolver(fsys, "", "/home/user")

	path, err := r.Resolve("/data/dl", "")
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestResolver_CustomFilename(t *testing.T) {
	fsys := newResolverFS(t, "/data/rules.yml", "/data/.cleanup-patterns.yml")
	r := NewResolver(fsys, "rules.yml", "")

	path, err := r.Resolve("/data/dl", "")
	require.NoError(t, err)
	assert.Equal(t, "/data/rules.yml", path)
	assert.Equal(t, "rules.yml", r.Filename())
}

func TestResolver_DirectoryWithRuleNameIgnored(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/data/dl/.cleanup-patterns.yml", 0755))
	require.NoError(t, afero.WriteFile(mem, "/data/.cleanup-patterns.yml", []byte(""), 0644))
	r := NewResolver(fsops.NewAferoFS(mem), "", "")

	path, err := r.Resolve("/data/dl", "")
	require.NoError(t, err)
	assert.Equal(t, "/data/.cleanup-patterns.yml", path)
}

func TestResolver_Override(t *testing.T) {
	fsys := newResolverFS(t, "/data/dl/.cleanup-patterns.yml", "/etc/custom.yml")
	r := NewResolver(fsys, "", "")

	path, err := r.Resolve("/data/dl", "/etc/custom.yml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/custom.yml", path)

	_, err = r.Resolve("/data/dl", "/etc/missing.yml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigNotFound))
}
