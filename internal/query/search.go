package query

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/canto-cli/canto/internal/access"
	"github.com/canto-cli/canto/internal/catalog"
	"github.com/canto-cli/canto/internal/models"
	"github.com/rs/zerolog"
)

// Options selects which sub-documents each search or list result is
// enriched with, at the cost of one extra round-trip per result and kind.
type Options struct {
	WithACL        bool
	WithAVUs       bool
	WithTimestamps bool
	WithSize       bool
	WithChecksum   bool
}

// Orchestrator composes the predicate compiler and executor into searches
// and per-path lookups. A metadata search runs two passes, one scoped to
// collections and one to data objects, and concatenates the results
// (collections first).
type Orchestrator struct {
	client catalog.Client
	exec   *Executor
	log    zerolog.Logger
}

// NewOrchestrator creates an orchestrator over a catalog client.
func NewOrchestrator(client catalog.Client, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		client: client,
		exec:   NewExecutor(client, log),
		log:    log.With().Str("component", "search").Logger(),
	}
}

// Search runs a metadata search and returns one JSON object per matching
// entity, collections before data objects, each optionally enriched.
func (o *Orchestrator) Search(ctx context.Context, spec SearchSpec, opts Options) ([]map[string]interface{}, error) {
	collB := NewBuilder()
	if err := Compile(ctx, o.client, CollectionPredicates{}, collB, spec); err != nil {
		return nil, err
	}
	results, err := o.exec.Execute(ctx, collB.Build())
	if err != nil {
		return nil, fmt.Errorf("collection search failed: %w", err)
	}

	dataB := NewBuilder()
	if err := Compile(ctx, o.client, DataObjectPredicates{}, dataB, spec); err != nil {
		return nil, err
	}
	if opts.WithSize {
		dataB.Select(catalog.ColDataSize, LabelSize)
	}
	if opts.WithChecksum {
		dataB.Select(catalog.ColDataChecksum, LabelChecksum)
	}
	NewestReplica(dataB)
	dataResults, err := o.exec.Execute(ctx, dataB.Build())
	if err != nil {
		return nil, fmt.Errorf("data object search failed: %w", err)
	}
	results = append(results, dataResults...)

	for _, entry := range results {
		if err := o.Enrich(ctx, entry, opts); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Enrich attaches the requested ACL, AVU, and timestamp sub-documents to
// one result entry in place.
func (o *Orchestrator) Enrich(ctx context.Context, entry map[string]interface{}, opts Options) error {
	target := targetOf(entry)
	if opts.WithACL {
		acl, err := o.ACLFor(ctx, target)
		if err != nil {
			return err
		}
		entry["access"] = acl
	}
	if opts.WithAVUs {
		avus, err := o.AVUsFor(ctx, target)
		if err != nil {
			return err
		}
		entry["avus"] = avus
	}
	if opts.WithTimestamps {
		stamps, err := o.TimestampsFor(ctx, target)
		if err != nil {
			return err
		}
		entry["timestamps"] = stamps
	}
	return nil
}

func targetOf(entry map[string]interface{}) models.Target {
	t := models.Target{}
	if coll, ok := entry[LabelCollection].(string); ok {
		t.Collection = coll
	}
	if obj, ok := entry[LabelDataObject].(string); ok {
		t.DataObject = obj
	}
	return t
}

func (o *Orchestrator) scopeToPath(b *Builder, t models.Target) {
	b.Condition(catalog.ColCollName, "=", t.Collection)
	if !t.IsCollection() {
		b.Condition(catalog.ColDataName, "=", t.DataObject)
	}
}

// ACLFor fetches the access list of one resolved path, translating catalog
// permission tokens back to the user-facing vocabulary.
func (o *Orchestrator) ACLFor(ctx context.Context, t models.Target) ([]map[string]interface{}, error) {
	b := NewBuilder()
	b.Select(catalog.ColUserName, LabelOwner)
	b.Select(catalog.ColUserZone, LabelZone)
	if t.IsCollection() {
		b.Select(catalog.ColCollAccessLevel, LabelLevel)
	} else {
		b.Select(catalog.ColDataAccessLevel, LabelLevel)
	}
	o.scopeToPath(b, t)

	rows, err := o.exec.Execute(ctx, b.Build())
	if err != nil {
		return nil, fmt.Errorf("ACL lookup for %q failed: %w", t.Path(), err)
	}
	for _, row := range rows {
		token, _ := row[LabelLevel].(string)
		level, err := access.FromCatalog(token)
		if err != nil {
			return nil, err
		}
		row[LabelLevel] = level
	}
	return rows, nil
}

// AVUsFor fetches the metadata triples of one resolved path.
func (o *Orchestrator) AVUsFor(ctx context.Context, t models.Target) ([]map[string]interface{}, error) {
	b := NewBuilder()
	if t.IsCollection() {
		b.Select(catalog.ColCollAttribute, LabelAttribute)
		b.Select(catalog.ColCollValue, LabelValue)
		b.Select(catalog.ColCollUnits, LabelUnits)
	} else {
		b.Select(catalog.ColDataAttribute, LabelAttribute)
		b.Select(catalog.ColDataValue, LabelValue)
		b.Select(catalog.ColDataUnits, LabelUnits)
		NewestReplica(b)
	}
	o.scopeToPath(b, t)

	rows, err := o.exec.Execute(ctx, b.Build())
	if err != nil {
		return nil, fmt.Errorf("metadata lookup for %q failed: %w", t.Path(), err)
	}
	return rows, nil
}

// CurrentAVUs fetches the metadata of a path as typed triples, for the
// metadata reconciliation algorithm.
func (o *Orchestrator) CurrentAVUs(ctx context.Context, t models.Target) ([]models.AVU, error) {
	rows, err := o.AVUsFor(ctx, t)
	if err != nil {
		return nil, err
	}
	avus := make([]models.AVU, 0, len(rows))
	for _, row := range rows {
		avu := models.AVU{}
		avu.Attribute, _ = row[LabelAttribute].(string)
		avu.Value, _ = row[LabelValue].(string)
		avu.Units, _ = row[LabelUnits].(string)
		avus = append(avus, avu)
	}
	return avus, nil
}

// TimestampsFor fetches creation/modification timestamps of one resolved
// path. For a data object the replica count is not controllable at the
// query layer, so rows for every replica come back and the single replica
// with the numerically lowest replica number is kept (ties broken by
// encounter order).
func (o *Orchestrator) TimestampsFor(ctx context.Context, t models.Target) ([]models.Timestamp, error) {
	b := NewBuilder()
	if t.IsCollection() {
		b.Select(catalog.ColCollCreateTime, LabelCreated)
		b.Select(catalog.ColCollModifyTime, LabelModified)
	} else {
		b.Select(catalog.ColDataCreateTime, LabelCreated)
		b.Select(catalog.ColDataModifyTime, LabelModified)
		b.Select(catalog.ColDataReplNum, LabelReplicates)
	}
	o.scopeToPath(b, t)

	rows, err := o.exec.Execute(ctx, b.Build())
	if err != nil {
		return nil, fmt.Errorf("timestamp lookup for %q failed: %w", t.Path(), err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	var replicates *int
	if !t.IsCollection() {
		sort.SliceStable(rows, func(i, j int) bool {
			ri, _ := rows[i][LabelReplicates].(int64)
			rj, _ := rows[j][LabelReplicates].(int64)
			return ri < rj
		})
		row = rows[0]
		if n, ok := row[LabelReplicates].(int64); ok {
			repl := int(n)
			replicates = &repl
		}
	}

	var stamps []models.Timestamp
	if created, ok := isoTime(row[LabelCreated]); ok {
		stamps = append(stamps, models.Timestamp{Created: created, Replicates: replicates})
	}
	if modified, ok := isoTime(row[LabelModified]); ok {
		stamps = append(stamps, models.Timestamp{Modified: modified, Replicates: replicates})
	}
	return stamps, nil
}

// ObjectStat fetches the size and checksum of a data object's newest
// replica.
func (o *Orchestrator) ObjectStat(ctx context.Context, t models.Target) (size int64, checksum string, err error) {
	b := NewBuilder()
	b.Select(catalog.ColDataSize, LabelSize)
	b.Select(catalog.ColDataChecksum, LabelChecksum)
	NewestReplica(b)
	o.scopeToPath(b, t)

	rows, err := o.exec.Execute(ctx, b.Build())
	if err != nil {
		return 0, "", fmt.Errorf("stat of %q failed: %w", t.Path(), err)
	}
	if len(rows) == 0 {
		return 0, "", nil
	}
	size, _ = rows[0][LabelSize].(int64)
	checksum, _ = rows[0][LabelChecksum].(string)
	return size, checksum, nil
}

// Contents lists the immediate children of a collection: sub-collections
// first, then data objects.
func (o *Orchestrator) Contents(ctx context.Context, collection string, withSize bool) ([]map[string]interface{}, error) {
	collB := NewBuilder()
	collB.Select(catalog.ColCollName, LabelCollection)
	collB.Condition(catalog.ColCollParentName, "=", collection)
	children, err := o.exec.Execute(ctx, collB.Build())
	if err != nil {
		return nil, fmt.Errorf("listing sub-collections of %q failed: %w", collection, err)
	}

	dataB := NewBuilder()
	dataB.Select(catalog.ColCollName, LabelCollection)
	dataB.Select(catalog.ColDataName, LabelDataObject)
	if withSize {
		dataB.Select(catalog.ColDataSize, LabelSize)
	}
	dataB.Condition(catalog.ColCollName, "=", collection)
	NewestReplica(dataB)
	objects, err := o.exec.Execute(ctx, dataB.Build())
	if err != nil {
		return nil, fmt.Errorf("listing data objects of %q failed: %w", collection, err)
	}
	return append(children, objects...), nil
}

func isoTime(raw interface{}) (string, bool) {
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return "", false
	}
	return time.Unix(secs, 0).UTC().Format(time.RFC3339), true
}
