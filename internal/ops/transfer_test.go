package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/canto-cli/canto/internal/catalog"
	"github.com/canto-cli/canto/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutThenGet_JSONIngest(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	dir := t.TempDir()
	local := filepath.Join(dir, "a.json")
	require.NoError(t, os.WriteFile(local, []byte(`{"sample": "s1"}`), 0o644))

	target := &models.Target{
		Collection: "/testZone/home", DataObject: "a.json",
		Directory: dir,
	}
	_, itemErr := d.Dispatch(ctx, envelope(models.OpPut, target, nil), "")
	require.Nil(t, itemErr)

	result, itemErr := d.Dispatch(ctx, envelope(models.OpGet, target, nil), "")
	require.Nil(t, itemErr)
	entry := result.(map[string]interface{})
	data := entry["data"].(map[string]interface{})
	assert.Equal(t, "s1", data["sample"])
}

func TestGet_RawAndSave(t *testing.T) {
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	content := []byte("not json at all")
	_, err := store.SeedDataObject(ctx, "/testZone/home/notes.txt",
		catalog.Replica{Content: content})
	require.NoError(t, err)

	target := &models.Target{Collection: "/testZone/home", DataObject: "notes.txt"}

	// Non-JSON content without the raw option is an item error.
	_, itemErr := d.Dispatch(ctx, envelope(models.OpGet, target, nil), "")
	require.NotNil(t, itemErr)
	assert.Contains(t, itemErr.Message, "not JSON")

	result, itemErr := d.Dispatch(ctx,
		envelope(models.OpGet, target, &models.Arguments{Raw: true}), "")
	require.Nil(t, itemErr)
	entry := result.(map[string]interface{})
	assert.Equal(t, "not json at all", entry["data"])

	dir := t.TempDir()
	saveTarget := &models.Target{
		Collection: "/testZone/home", DataObject: "notes.txt",
		Directory: dir, File: "saved.txt",
	}
	_, itemErr = d.Dispatch(ctx,
		envelope(models.OpGet, saveTarget, &models.Arguments{Save: true}), "")
	require.Nil(t, itemErr)
	got, err := os.ReadFile(filepath.Join(dir, "saved.txt"))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestPut_VerifyChecksum(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	dir := t.TempDir()
	local := filepath.Join(dir, "a.json")
	require.NoError(t, os.WriteFile(local, []byte(`{"k": 1}`), 0o644))

	target := &models.Target{
		Collection: "/testZone/home", DataObject: "a.json", Directory: dir,
	}
	result, itemErr := d.Dispatch(ctx,
		envelope(models.OpPut, target, &models.Arguments{Verify: true}), "")
	require.Nil(t, itemErr)
	entry := result.(map[string]interface{})
	assert.NotEmpty(t, entry["checksum"])
}

func TestPut_MissingLocalFile(t *testing.T) {
	d, _ := newTestDispatcher(t)

	target := &models.Target{
		Collection: "/testZone/home", DataObject: "a.json",
		Directory: t.TempDir(),
	}
	_, itemErr := d.Dispatch(context.Background(), envelope(models.OpPut, target, nil), "")
	require.NotNil(t, itemErr)
	assert.Contains(t, itemErr.Message, "failed to open local file")
}

func TestChecksum_VerifyMatches(t *testing.T) {
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	_, err := store.SeedDataObject(ctx, "/testZone/home/a.json",
		catalog.Replica{Content: []byte("original")})
	require.NoError(t, err)

	target := &models.Target{Collection: "/testZone/home", DataObject: "a.json"}

	result, itemErr := d.Dispatch(ctx,
		envelope(models.OpChecksum, target, &models.Arguments{Verify: true}), "")
	require.Nil(t, itemErr)
	entry := result.(map[string]interface{})
	assert.NotEmpty(t, entry["checksum"])
}

func TestChecksum_CollectionRejected(t *testing.T) {
	d, _ := newTestDispatcher(t)

	item := envelope(models.OpChecksum, &models.Target{Collection: "/testZone/home"}, nil)
	_, itemErr := d.Dispatch(context.Background(), item, "")
	require.NotNil(t, itemErr)
	assert.Equal(t, catalog.CodeInvalidArgument, itemErr.Code)
}

func TestMoveAndRemove(t *testing.T) {
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	_, err := store.SeedDataObject(ctx, "/testZone/home/a.json",
		catalog.Replica{Content: []byte("x")})
	require.NoError(t, err)

	target := &models.Target{Collection: "/testZone/home", DataObject: "a.json"}
	result, itemErr := d.Dispatch(ctx,
		envelope(models.OpMove, target, &models.Arguments{Path: "/testZone/home/b.json"}), "")
	require.Nil(t, itemErr)
	entry := result.(map[string]interface{})
	assert.Equal(t, "b.json", entry["data_object"])

	moved := &models.Target{Collection: "/testZone/home", DataObject: "b.json"}
	_, itemErr = d.Dispatch(ctx, envelope(models.OpRemove, moved, nil), "")
	require.Nil(t, itemErr)

	info, err := store.ResolvePath(ctx, "/testZone/home/b.json")
	require.NoError(t, err)
	assert.False(t, info.Exists)
}

func TestMove_RequiresDestination(t *testing.T) {
	d, store := newTestDispatcher(t)
	ctx := context.Background()
	_, err := store.SeedDataObject(ctx, "/testZone/home/a.json")
	require.NoError(t, err)

	target := &models.Target{Collection: "/testZone/home", DataObject: "a.json"}
	_, itemErr := d.Dispatch(ctx, envelope(models.OpMove, target, nil), "")
	require.NotNil(t, itemErr)
	assert.Contains(t, itemErr.Message, "no destination")
}

func TestRemove_CollectionRejected(t *testing.T) {
	d, _ := newTestDispatcher(t)

	item := envelope(models.OpRemove, &models.Target{Collection: "/testZone/home"}, nil)
	_, itemErr := d.Dispatch(context.Background(), item, "")
	require.NotNil(t, itemErr)
	assert.Contains(t, itemErr.Message, "use rmcoll")
}
