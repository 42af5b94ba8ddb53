package catalog

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, chunkSize int) *SQLite {
	t.Helper()
	s := NewSQLite(SQLiteConfig{Path: ":memory:", Zone: "testZone", ChunkSize: chunkSize})
	require.NoError(t, s.Connect(context.Background()))
	t.Cleanup(func() { s.Disconnect() })
	return s
}

func TestConnect_BootstrapsZoneRoots(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	for _, p := range []string{"/", "/testZone", "/testZone/home"} {
		info, err := s.ResolvePath(ctx, p)
		require.NoError(t, err)
		assert.True(t, info.Exists, p)
		assert.Equal(t, KindCollection, info.Kind, p)
	}
}

func TestResolvePath(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, "/testZone/home/x", false))
	w, err := s.OpenWrite(ctx, "/testZone/home/x/a.json")
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"k": 1}`))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	info, err := s.ResolvePath(ctx, "/testZone/home/x")
	require.NoError(t, err)
	assert.Equal(t, KindCollection, info.Kind)

	info, err = s.ResolvePath(ctx, "/testZone/home/x/a.json")
	require.NoError(t, err)
	assert.Equal(t, KindDataObject, info.Kind)
	assert.Equal(t, "/testZone/home/x", info.Collection)
	assert.Equal(t, "a.json", info.Name)

	info, err = s.ResolvePath(ctx, "/testZone/home/missing")
	require.NoError(t, err)
	assert.False(t, info.Exists)
	assert.Equal(t, KindNone, info.Kind)
}

func TestCreateCollection(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, "/testZone/home/x", false))

	err := s.CreateCollection(ctx, "/testZone/home/x", false)
	assert.Equal(t, CodeNameExists, ErrorCode(err))

	// With parents set, an existing collection is fine and missing
	// ancestors are created.
	require.NoError(t, s.CreateCollection(ctx, "/testZone/home/x", true))
	require.NoError(t, s.CreateCollection(ctx, "/testZone/home/deep/er/est", true))
	info, err := s.ResolvePath(ctx, "/testZone/home/deep/er")
	require.NoError(t, err)
	assert.True(t, info.Exists)

	err = s.CreateCollection(ctx, "/testZone/home/no/parent", false)
	assert.Equal(t, CodeItemNotFound, ErrorCode(err))
}

func TestRemoveCollection(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, "/testZone/home/x", false))
	w, err := s.OpenWrite(ctx, "/testZone/home/x/a.json")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = s.RemoveCollection(ctx, "/testZone/home/x", false)
	assert.Equal(t, CodeCollectionNotEmpty, ErrorCode(err))

	require.NoError(t, s.RemoveCollection(ctx, "/testZone/home/x", true))
	info, err := s.ResolvePath(ctx, "/testZone/home/x")
	require.NoError(t, err)
	assert.False(t, info.Exists)
	info, err = s.ResolvePath(ctx, "/testZone/home/x/a.json")
	require.NoError(t, err)
	assert.False(t, info.Exists)

	err = s.RemoveCollection(ctx, "/testZone/home/x", false)
	assert.Equal(t, CodeItemNotFound, ErrorCode(err))
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, "/testZone/home/x", false))
	p := "/testZone/home/x"

	require.NoError(t, s.AddMetadata(ctx, p, "project", "alpha", ""))
	// Re-adding the same triple is a no-op, not an error.
	require.NoError(t, s.AddMetadata(ctx, p, "project", "alpha", ""))

	require.NoError(t, s.RemoveMetadata(ctx, p, "project", "alpha", ""))
	err := s.RemoveMetadata(ctx, p, "project", "alpha", "")
	assert.Equal(t, CodeItemNotFound, ErrorCode(err))

	err = s.AddMetadata(ctx, "/testZone/home/missing", "a", "b", "")
	assert.Equal(t, CodeItemNotFound, ErrorCode(err))
}

func TestMove_DataObject(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, "/testZone/home/src", false))
	require.NoError(t, s.CreateCollection(ctx, "/testZone/home/dst", false))
	w, err := s.OpenWrite(ctx, "/testZone/home/src/a.json")
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Rename within a path.
	require.NoError(t, s.Move(ctx, "/testZone/home/src/a.json", "/testZone/home/src/b.json"))
	info, err := s.ResolvePath(ctx, "/testZone/home/src/b.json")
	require.NoError(t, err)
	assert.True(t, info.Exists)

	// Moving onto an existing collection keeps the leaf name.
	require.NoError(t, s.Move(ctx, "/testZone/home/src/b.json", "/testZone/home/dst"))
	info, err = s.ResolvePath(ctx, "/testZone/home/dst/b.json")
	require.NoError(t, err)
	assert.True(t, info.Exists)

	err = s.Move(ctx, "/testZone/home/src/gone.json", "/testZone/home/dst")
	assert.Equal(t, CodeItemNotFound, ErrorCode(err))
}

func TestMove_CollectionSubtree(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, "/testZone/home/old/sub", true))
	w, err := s.OpenWrite(ctx, "/testZone/home/old/sub/a.json")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, s.Move(ctx, "/testZone/home/old", "/testZone/home/new"))

	info, err := s.ResolvePath(ctx, "/testZone/home/new/sub/a.json")
	require.NoError(t, err)
	assert.True(t, info.Exists)
	info, err = s.ResolvePath(ctx, "/testZone/home/old")
	require.NoError(t, err)
	assert.False(t, info.Exists)
}

func TestTransferRoundTrip(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()
	content := []byte(`{"sample": "s1"}`)

	w, err := s.OpenWrite(ctx, "/testZone/home/a.json")
	require.NoError(t, err)
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := s.OpenRead(ctx, "/testZone/home/a.json")
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, content, got)

	sum := md5.Sum(content)
	checksum, err := s.Checksum(ctx, "/testZone/home/a.json", false)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:]), checksum)
}

func TestOverwriteCollapsesReplicas(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	_, err := s.SeedDataObject(ctx, "/testZone/home/a.json",
		Replica{Number: 0, Status: "0", Content: []byte("stale")},
		Replica{Number: 1, Status: ReplStatusNewest, Content: []byte("fresh")})
	require.NoError(t, err)

	w, err := s.OpenWrite(ctx, "/testZone/home/a.json")
	require.NoError(t, err)
	_, err = w.Write([]byte("newest"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	q := &Query{
		Select: []Selection{
			{Column: ColDataName, Label: "data_object"},
			{Column: ColDataReplNum, Label: "replicates"},
		},
		Conditions: []Condition{{Column: ColDataName, Op: "=", Literal: "a.json"}},
	}
	chunk, err := s.RunQuery(ctx, q)
	require.NoError(t, err)
	require.Len(t, chunk.Rows, 1)
	assert.Equal(t, "0", chunk.Rows[0][1])

	r, err := s.OpenRead(ctx, "/testZone/home/a.json")
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("newest"), got)
}

func TestRemoveDataObject(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	w, err := s.OpenWrite(ctx, "/testZone/home/a.json")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, s.AddMetadata(ctx, "/testZone/home/a.json", "k", "v", ""))

	require.NoError(t, s.RemoveDataObject(ctx, "/testZone/home/a.json", false))
	info, err := s.ResolvePath(ctx, "/testZone/home/a.json")
	require.NoError(t, err)
	assert.False(t, info.Exists)

	err = s.RemoveDataObject(ctx, "/testZone/home/a.json", false)
	assert.Equal(t, CodeItemNotFound, ErrorCode(err))
}

func TestUsersAndAccess(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	alice, err := s.AddUser(ctx, "alice", "", "")
	require.NoError(t, err)
	assert.Equal(t, "testZone", alice.Zone)
	_, err = s.AddUser(ctx, "alice", "otherZone", "")
	require.NoError(t, err)

	users, err := s.ListUsers(ctx, "alice", "")
	require.NoError(t, err)
	assert.Len(t, users, 2)
	users, err = s.ListUsers(ctx, "alice", "testZone")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, alice.ID, users[0].ID)

	require.NoError(t, s.CreateCollection(ctx, "/testZone/home/x", false))
	require.NoError(t, s.SetAccess(ctx, "/testZone/home/x", false, alice.ID, "read object"))

	q := &Query{
		Select: []Selection{
			{Column: ColCollName, Label: "collection"},
			{Column: ColCollAccessLevel, Label: "level"},
		},
		Conditions: []Condition{{Column: ColCollAccessUserID, Op: "=", Literal: alice.ID}},
	}
	chunk, err := s.RunQuery(ctx, q)
	require.NoError(t, err)
	require.Len(t, chunk.Rows, 1)
	assert.Equal(t, "/testZone/home/x", chunk.Rows[0][0])
	assert.Equal(t, "read object", chunk.Rows[0][1])

	// Null revokes.
	require.NoError(t, s.SetAccess(ctx, "/testZone/home/x", false, alice.ID, "null"))
	_, err = s.RunQuery(ctx, q)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestSetAccess_Recurse(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	alice, err := s.AddUser(ctx, "alice", "", "")
	require.NoError(t, err)
	require.NoError(t, s.CreateCollection(ctx, "/testZone/home/x/sub", true))
	w, err := s.OpenWrite(ctx, "/testZone/home/x/sub/a.json")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, s.SetAccess(ctx, "/testZone/home/x", true, alice.ID, "own"))

	q := &Query{
		Select: []Selection{
			{Column: ColDataName, Label: "data_object"},
			{Column: ColDataAccessLevel, Label: "level"},
		},
		Conditions: []Condition{{Column: ColDataAccessUserID, Op: "=", Literal: alice.ID}},
	}
	chunk, err := s.RunQuery(ctx, q)
	require.NoError(t, err)
	require.Len(t, chunk.Rows, 1)
	assert.Equal(t, "a.json", chunk.Rows[0][0])
	assert.Equal(t, "own", chunk.Rows[0][1])
}

func TestRunQuery_MetadataConditions(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, "/testZone/home/x", false))
	for i, size := range []int{10, 200, 3000} {
		p := fmt.Sprintf("/testZone/home/x/s%d.json", i)
		_, err := s.SeedDataObject(ctx, p, Replica{Content: make([]byte, size)})
		require.NoError(t, err)
		require.NoError(t, s.AddMetadata(ctx, p, "project", "alpha", ""))
	}

	q := &Query{
		Select: []Selection{
			{Column: ColCollName, Label: "collection"},
			{Column: ColDataName, Label: "data_object"},
			{Column: ColDataSize, Label: "size"},
		},
		Conditions: []Condition{
			{Column: ColDataAttribute, Op: "=", Literal: "project"},
			{Column: ColDataValue, Op: "=", Literal: "alpha"},
			{Column: ColDataSize, Op: "n>", Literal: "100"},
		},
	}
	chunk, err := s.RunQuery(ctx, q)
	require.NoError(t, err)
	require.Len(t, chunk.Rows, 2)
	assert.Equal(t, "s1.json", chunk.Rows[0][1])
	assert.Equal(t, "s2.json", chunk.Rows[1][1])
}

func TestRunQuery_LikeAndZoneScope(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, "/testZone/home/proj", false))
	require.NoError(t, s.AddMetadata(ctx, "/testZone/home/proj", "study", "x1", ""))

	q := &Query{
		Select: []Selection{{Column: ColCollName, Label: "collection"}},
		Conditions: []Condition{
			{Column: ColCollAttribute, Op: "=", Literal: "study"},
			{Column: ColCollValue, Op: "like", Literal: "x%"},
		},
		Zone: "testZone",
	}
	chunk, err := s.RunQuery(ctx, q)
	require.NoError(t, err)
	require.Len(t, chunk.Rows, 1)
	assert.Equal(t, "/testZone/home/proj", chunk.Rows[0][0])

	q.Zone = "otherZone"
	_, err = s.RunQuery(ctx, q)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestRunQuery_Chunking(t *testing.T) {
	s := newTestStore(t, 2)
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, "/testZone/home/x", false))
	for i := 0; i < 5; i++ {
		_, err := s.SeedDataObject(ctx, fmt.Sprintf("/testZone/home/x/obj%d.json", i))
		require.NoError(t, err)
	}

	q := &Query{
		Select: []Selection{{Column: ColDataName, Label: "data_object"}},
		Conditions: []Condition{
			{Column: ColCollName, Op: "like", Literal: "/testZone/home/x%"},
		},
	}

	var names []string
	chunks := 0
	for {
		chunk, err := s.RunQuery(ctx, q)
		if err == ErrNoRows {
			break
		}
		require.NoError(t, err)
		chunks++
		for _, row := range chunk.Rows {
			names = append(names, row[0])
		}
		if chunk.Continue == 0 {
			break
		}
		q.Continue = chunk.Continue
	}

	assert.Equal(t, 3, chunks)
	assert.Equal(t, []string{"obj0.json", "obj1.json", "obj2.json", "obj3.json", "obj4.json"}, names)
}

func TestRunQuery_ChunkingExactMultiple(t *testing.T) {
	// Four rows in chunks of two: the final chunk is full, so the store
	// hands out a continuation token whose redemption yields the sentinel.
	s := newTestStore(t, 2)
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, "/testZone/home/x", false))
	for i := 0; i < 4; i++ {
		_, err := s.SeedDataObject(ctx, fmt.Sprintf("/testZone/home/x/obj%d.json", i))
		require.NoError(t, err)
	}

	q := &Query{
		Select: []Selection{{Column: ColDataName, Label: "data_object"}},
		Conditions: []Condition{
			{Column: ColCollName, Op: "like", Literal: "/testZone/home/x%"},
		},
	}

	chunk, err := s.RunQuery(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 2, chunk.Continue)
	q.Continue = chunk.Continue

	chunk, err = s.RunQuery(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 4, chunk.Continue)
	q.Continue = chunk.Continue

	_, err = s.RunQuery(ctx, q)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestRunQuery_NoColumns(t *testing.T) {
	s := newTestStore(t, 0)
	_, err := s.RunQuery(context.Background(), &Query{})
	assert.Equal(t, CodeInvalidArgument, ErrorCode(err))
}

func TestNotConnected(t *testing.T) {
	s := NewSQLite(SQLiteConfig{Path: ":memory:"})
	_, err := s.ResolvePath(context.Background(), "/x")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, s.Connected())
	assert.NoError(t, s.Disconnect())
}
