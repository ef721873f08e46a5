package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	r, err := New(dir)
	require.NoError(t, err)
	return r, dir
}

func TestNewCreatesDefaultTenant(t *testing.T) {
	r, _ := newTestRegistry(t)

	assert.True(t, r.Exists("default"))
	md, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, "default", md.ID)
}

func TestCreateAndGet(t *testing.T) {
	r, _ := newTestRegistry(t)

	md, err := r.Create("Plant A", "North site", "plant_a")
	require.NoError(t, err)
	assert.Equal(t, "plant_a", md.ID)
	assert.Equal(t, "Plant A", md.Name)
	assert.False(t, md.CreatedAt.IsZero())

	got, err := r.Get("plant_a")
	require.NoError(t, err)
	assert.Equal(t, md.ID, got.ID)

	_, err = r.Create("Other", "", "plant_a")
	assert.ErrorIs(t, err, ErrTenantExists)

	_, err = r.Get("nope")
	assert.ErrorIs(t, err, ErrTenantUnknown)
}

func TestCreateDerivesIDFromName(t *testing.T) {
	r, _ := newTestRegistry(t)

	md, err := r.Create("Plant B Turbines", "", "")
	require.NoError(t, err)
	assert.Regexp(t, `^plant_b_turbines_[0-9a-f]{8}$`, md.ID)

	// Derived ids never collide even for identical names.
	md2, err := r.Create("Plant B Turbines", "", "")
	require.NoError(t, err)
	assert.NotEqual(t, md.ID, md2.ID)
}

func TestListOrderedByCreation(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Create("B", "", "b")
	require.NoError(t, err)
	_, err = r.Create("A", "", "a")
	require.NoError(t, err)

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "default", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, "a", list[2].ID)
}

func TestDeleteRemovesTenantDir(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Create("Plant A", "", "plant_a")
	require.NoError(t, err)
	dir := r.WorkingDir("plant_a")
	_, err = os.Stat(dir)
	require.NoError(t, err)

	require.NoError(t, r.Delete("plant_a"))
	assert.False(t, r.Exists("plant_a"))
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, r.Delete("plant_a"), ErrTenantUnknown)
}

func TestDeleteDefaultRefused(t *testing.T) {
	r, _ := newTestRegistry(t)
	assert.Error(t, r.Delete("default"))
	assert.True(t, r.Exists("default"))
}

func TestSetDefault(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Create("Plant A", "", "plant_a")
	require.NoError(t, err)
	require.NoError(t, r.SetDefault("plant_a"))

	md, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, "plant_a", md.ID)

	assert.ErrorIs(t, r.SetDefault("ghost"), ErrTenantUnknown)
}

func TestUpdateCounts(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Create("Plant A", "", "plant_a")
	require.NoError(t, err)
	require.NoError(t, r.UpdateCounts("plant_a", 3, 40, 120))

	md, err := r.Get("plant_a")
	require.NoError(t, err)
	assert.Equal(t, 3, md.DocumentCount)
	assert.Equal(t, 40, md.EntityCount)
	assert.Equal(t, 120, md.ChunkCount)
	assert.True(t, md.UpdatedAt.After(md.CreatedAt) || md.UpdatedAt.Equal(md.CreatedAt))
}

func TestRegistryPersistsAcrossReopen(t *testing.T) {
	r, dir := newTestRegistry(t)

	_, err := r.Create("Plant A", "North site", "plant_a")
	require.NoError(t, err)
	require.NoError(t, r.UpdateCounts("plant_a", 1, 2, 3))
	require.NoError(t, r.SetDefault("plant_a"))

	reopened, err := New(dir)
	require.NoError(t, err)

	md, err := reopened.Get("plant_a")
	require.NoError(t, err)
	assert.Equal(t, "North site", md.Description)
	assert.Equal(t, 2, md.EntityCount)

	def, err := reopened.Default()
	require.NoError(t, err)
	assert.Equal(t, "plant_a", def.ID)
}

func TestLoadSkipsMissingMetadata(t *testing.T) {
	r, dir := newTestRegistry(t)
	_, err := r.Create("Plant A", "", "plant_a")
	require.NoError(t, err)

	// Simulate out-of-band removal of the tenant directory.
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "tenants", "plant_a")))

	reopened, err := New(dir)
	require.NoError(t, err)
	assert.False(t, reopened.Exists("plant_a"))
	assert.True(t, reopened.Exists("default"))
}
