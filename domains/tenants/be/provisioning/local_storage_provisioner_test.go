package provisioning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalCheckCreatesPrefix(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	p := NewLocalStorageProvisioner(base)

	result, err := p.Check(t.Context(), "tenants/acme-12345678/branding")
	require.NoError(t, err)
	require.True(t, result.Ready)

	info, err := os.Stat(filepath.Join(base, "tenants", "acme-12345678", "branding"))
	require.NoError(t, err)
	require.True(t, info.IsDir())

	// Re-checking an already-provisioned prefix is a no-op.
	result, err = p.Check(t.Context(), "tenants/acme-12345678/branding")
	require.NoError(t, err)
	require.True(t, result.Ready)
}

func TestLocalCheckRejectsFileCollision(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "branding"), []byte("x"), 0o644))

	p := NewLocalStorageProvisioner(base)
	result, err := p.Check(t.Context(), "branding")
	require.Error(t, err)
	require.False(t, result.Ready)
}

func TestLocalCheckRequiresPrefix(t *testing.T) {
	t.Parallel()

	p := NewLocalStorageProvisioner(t.TempDir())
	result, err := p.Check(t.Context(), "")
	require.Error(t, err)
	require.False(t, result.Ready)
}
