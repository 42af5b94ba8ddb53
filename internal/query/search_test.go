package query

import (
	"context"
	"testing"
	"time"

	"github.com/canto-cli/canto/internal/catalog"
	"github.com/canto-cli/canto/internal/logging"
	"github.com/canto-cli/canto/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrchestrator(t *testing.T) (*Orchestrator, *catalog.SQLite) {
	t.Helper()
	store := catalog.NewSQLite(catalog.SQLiteConfig{Path: ":memory:", Zone: "testZone"})
	require.NoError(t, store.Connect(context.Background()))
	t.Cleanup(func() { store.Disconnect() })
	return NewOrchestrator(store, logging.Discard()), store
}

func TestSearch_CollectionsBeforeDataObjects(t *testing.T) {
	o, store := newOrchestrator(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "/testZone/home/x", false))
	require.NoError(t, store.AddMetadata(ctx, "/testZone/home/x", "project", "alpha", ""))
	_, err := store.SeedDataObject(ctx, "/testZone/home/x/a.json",
		catalog.Replica{Content: []byte("data")})
	require.NoError(t, err)
	require.NoError(t, store.AddMetadata(ctx, "/testZone/home/x/a.json", "project", "alpha", ""))

	spec := SearchSpec{
		AVUs:       []models.AVU{{Attribute: "project", Value: "alpha"}},
		Collection: "/testZone/home",
	}
	results, err := o.Search(ctx, spec, Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NotContains(t, results[0], LabelDataObject)
	assert.Equal(t, "a.json", results[1][LabelDataObject])
}

func TestSearch_NewestReplicaOnly(t *testing.T) {
	o, store := newOrchestrator(t)
	ctx := context.Background()

	_, err := store.SeedDataObject(ctx, "/testZone/home/a.json",
		catalog.Replica{Number: 0, Status: "0", Content: []byte("stale")},
		catalog.Replica{Number: 1, Status: catalog.ReplStatusNewest, Content: []byte("fresh")})
	require.NoError(t, err)
	require.NoError(t, store.AddMetadata(ctx, "/testZone/home/a.json", "project", "alpha", ""))

	spec := SearchSpec{AVUs: []models.AVU{{Attribute: "project", Value: "alpha"}}}
	results, err := o.Search(ctx, spec, Options{WithSize: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(5), results[0][LabelSize])
}

func TestSearch_SizeAndChecksumColumns(t *testing.T) {
	o, store := newOrchestrator(t)
	ctx := context.Background()

	_, err := store.SeedDataObject(ctx, "/testZone/home/a.json",
		catalog.Replica{Content: []byte("12345678")})
	require.NoError(t, err)
	require.NoError(t, store.AddMetadata(ctx, "/testZone/home/a.json", "project", "alpha", ""))

	spec := SearchSpec{AVUs: []models.AVU{{Attribute: "project", Value: "alpha"}}}
	results, err := o.Search(ctx, spec, Options{WithSize: true, WithChecksum: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(8), results[0][LabelSize])
	assert.NotEmpty(t, results[0][LabelChecksum])
}

func TestACLFor(t *testing.T) {
	o, store := newOrchestrator(t)
	ctx := context.Background()

	alice, err := store.AddUser(ctx, "alice", "", "")
	require.NoError(t, err)
	require.NoError(t, store.CreateCollection(ctx, "/testZone/home/x", false))
	require.NoError(t, store.SetAccess(ctx, "/testZone/home/x", false, alice.ID, "modify object"))

	acl, err := o.ACLFor(ctx, models.Target{Collection: "/testZone/home/x"})
	require.NoError(t, err)
	require.Len(t, acl, 1)
	assert.Equal(t, "alice", acl[0][LabelOwner])
	assert.Equal(t, "testZone", acl[0][LabelZone])
	assert.Equal(t, "write", acl[0][LabelLevel])
}

func TestCurrentAVUs(t *testing.T) {
	o, store := newOrchestrator(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "/testZone/home/x", false))
	require.NoError(t, store.AddMetadata(ctx, "/testZone/home/x", "a", "1", ""))
	require.NoError(t, store.AddMetadata(ctx, "/testZone/home/x", "b", "2", "mm"))

	avus, err := o.CurrentAVUs(ctx, models.Target{Collection: "/testZone/home/x"})
	require.NoError(t, err)
	require.Len(t, avus, 2)
	assert.True(t, models.ContainsAVU(avus, models.AVU{Attribute: "a", Value: "1"}))
	assert.True(t, models.ContainsAVU(avus, models.AVU{Attribute: "b", Value: "2", Units: "mm"}))
}

func TestTimestampsFor_LowestReplicaWins(t *testing.T) {
	o, store := newOrchestrator(t)
	ctx := context.Background()

	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	late := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Unix()
	_, err := store.SeedDataObject(ctx, "/testZone/home/a.json",
		catalog.Replica{Number: 2, Status: catalog.ReplStatusNewest, Created: late, Modified: late},
		catalog.Replica{Number: 0, Status: "0", Created: early, Modified: early})
	require.NoError(t, err)

	stamps, err := o.TimestampsFor(ctx, models.Target{
		Collection: "/testZone/home", DataObject: "a.json",
	})
	require.NoError(t, err)
	require.Len(t, stamps, 2)

	// Replica 0's timestamps are reported even though replica 2 is the
	// structurally newest copy.
	assert.Equal(t, "2024-01-01T00:00:00Z", stamps[0].Created)
	assert.Equal(t, "2024-01-01T00:00:00Z", stamps[1].Modified)
	require.NotNil(t, stamps[0].Replicates)
	assert.Equal(t, 0, *stamps[0].Replicates)
}

func TestTimestampsFor_Collection(t *testing.T) {
	o, store := newOrchestrator(t)
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, "/testZone/home/x", false))

	stamps, err := o.TimestampsFor(ctx, models.Target{Collection: "/testZone/home/x"})
	require.NoError(t, err)
	require.Len(t, stamps, 2)
	assert.NotEmpty(t, stamps[0].Created)
	assert.Nil(t, stamps[0].Replicates)
	assert.NotEmpty(t, stamps[1].Modified)
}

func TestObjectStat(t *testing.T) {
	o, store := newOrchestrator(t)
	ctx := context.Background()

	_, err := store.SeedDataObject(ctx, "/testZone/home/a.json",
		catalog.Replica{Content: []byte("abc")})
	require.NoError(t, err)

	size, checksum, err := o.ObjectStat(ctx, models.Target{
		Collection: "/testZone/home", DataObject: "a.json",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)
	assert.NotEmpty(t, checksum)

	size, checksum, err = o.ObjectStat(ctx, models.Target{
		Collection: "/testZone/home", DataObject: "missing.json",
	})
	require.NoError(t, err)
	assert.Zero(t, size)
	assert.Empty(t, checksum)
}

func TestContents(t *testing.T) {
	o, store := newOrchestrator(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "/testZone/home/x/sub", true))
	_, err := store.SeedDataObject(ctx, "/testZone/home/x/a.json",
		catalog.Replica{Content: []byte("xy")})
	require.NoError(t, err)

	entries, err := o.Contents(ctx, "/testZone/home/x", true)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/testZone/home/x/sub", entries[0][LabelCollection])
	assert.Equal(t, "a.json", entries[1][LabelDataObject])
	assert.Equal(t, int64(2), entries[1][LabelSize])
}
