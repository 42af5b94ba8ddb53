package query

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/canto-cli/canto/internal/access"
	"github.com/canto-cli/canto/internal/catalog"
	"github.com/canto-cli/canto/internal/models"
)

// Output labels used when materializing rows.
const (
	LabelCollection = "collection"
	LabelDataObject = "data_object"
	LabelAttribute  = "attribute"
	LabelValue      = "value"
	LabelUnits      = "units"
	LabelSize       = "size"
	LabelChecksum   = "checksum"
	LabelCreated    = "created"
	LabelModified   = "modified"
	LabelReplicates = "replicates"
	LabelOwner      = "owner"
	LabelZone       = "zone"
	LabelLevel      = "level"
)

// PredicateBuilder compiles clause types into conditions for one entity
// kind. The catalog exposes disjoint column sets for collections and data
// objects, so a search pass picks one implementation up front and threads it
// through every clause.
type PredicateBuilder interface {
	// SelectEntity adds the identifying output columns of the kind.
	SelectEntity(b *Builder)
	// AVU compiles one attribute/value/units clause.
	AVU(b *Builder, avu models.AVU) error
	// Access compiles one access clause, resolving the owner first.
	Access(ctx context.Context, finder catalog.UserFinder, b *Builder, ac models.Access) error
	// Timestamp compiles one created/modified timestamp clause.
	Timestamp(b *Builder, ts models.Timestamp) error
}

// CollectionPredicates compiles clauses against collection-scope columns.
type CollectionPredicates struct{}

// DataObjectPredicates compiles clauses against data-object-scope columns.
type DataObjectPredicates struct{}

func (CollectionPredicates) SelectEntity(b *Builder) {
	b.Select(catalog.ColCollName, LabelCollection)
}

func (DataObjectPredicates) SelectEntity(b *Builder) {
	b.Select(catalog.ColCollName, LabelCollection)
	b.Select(catalog.ColDataName, LabelDataObject)
}

func compileAVU(b *Builder, avu models.AVU, attrCol, valueCol, unitsCol catalog.Column) error {
	if avu.Attribute == "" {
		return fmt.Errorf("AVU clause has no attribute: %+v", avu)
	}
	op, err := normalizeOperator(avu.Operator)
	if err != nil {
		return err
	}
	b.Condition(attrCol, "=", avu.Attribute)
	b.Condition(valueCol, op, avu.Value)
	if avu.Units != "" {
		b.Condition(unitsCol, "=", avu.Units)
	}
	return nil
}

func (CollectionPredicates) AVU(b *Builder, avu models.AVU) error {
	return compileAVU(b, avu, catalog.ColCollAttribute, catalog.ColCollValue, catalog.ColCollUnits)
}

func (DataObjectPredicates) AVU(b *Builder, avu models.AVU) error {
	return compileAVU(b, avu, catalog.ColDataAttribute, catalog.ColDataValue, catalog.ColDataUnits)
}

func compileAccess(ctx context.Context, finder catalog.UserFinder, b *Builder,
	ac models.Access, userCol, levelCol catalog.Column) error {
	user, err := access.ResolveOwner(ctx, finder, ac.Owner, ac.Zone)
	if err != nil {
		return err
	}
	token, err := access.ToCatalog(ac.Level)
	if err != nil {
		return err
	}
	b.Condition(userCol, "=", user.ID)
	b.Condition(levelCol, "=", token)
	return nil
}

func (CollectionPredicates) Access(ctx context.Context, finder catalog.UserFinder, b *Builder, ac models.Access) error {
	return compileAccess(ctx, finder, b, ac, catalog.ColCollAccessUserID, catalog.ColCollAccessLevel)
}

func (DataObjectPredicates) Access(ctx context.Context, finder catalog.UserFinder, b *Builder, ac models.Access) error {
	return compileAccess(ctx, finder, b, ac, catalog.ColDataAccessUserID, catalog.ColDataAccessLevel)
}

func compileTimestamp(b *Builder, ts models.Timestamp, createCol, modifyCol catalog.Column) error {
	if (ts.Created == "") == (ts.Modified == "") {
		return fmt.Errorf("timestamp clause must set exactly one of created/modified: %+v", ts)
	}
	op, err := normalizeOperator(ts.Operator)
	if err != nil {
		return err
	}
	col, value := createCol, ts.Created
	if ts.Modified != "" {
		col, value = modifyCol, ts.Modified
	}
	when, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return fmt.Errorf("malformed timestamp %q: %w", value, err)
	}
	b.Condition(col, op, strconv.FormatInt(when.Unix(), 10))
	return nil
}

func (CollectionPredicates) Timestamp(b *Builder, ts models.Timestamp) error {
	return compileTimestamp(b, ts, catalog.ColCollCreateTime, catalog.ColCollModifyTime)
}

func (DataObjectPredicates) Timestamp(b *Builder, ts models.Timestamp) error {
	return compileTimestamp(b, ts, catalog.ColDataCreateTime, catalog.ColDataModifyTime)
}

// NewestReplica restricts a data-object query to the structurally newest
// replica, avoiding duplicate rows for multi-replica items. Callers
// consolidating timestamps by lowest replica number must skip it.
func NewestReplica(b *Builder) {
	b.Condition(catalog.ColDataReplStatus, "=", catalog.ReplStatusNewest)
}

// ScopePath applies a collection path to a query, in one of three mutually
// exclusive ways, tested in order: a path that is syntactically just a zone
// name (one non-empty segment, no internal separator) is a zone-scope hint
// when no explicit zone was supplied; any other absolute path becomes a
// collection-name prefix condition; an explicit zone always wins over one
// derived from the path. A single-segment zone-root collection therefore
// cannot be used as a path filter; this matches the catalog tooling this
// feeds.
func ScopePath(b *Builder, collection, explicitZone string) error {
	defer func() {
		if explicitZone != "" {
			b.SetZone(explicitZone)
		}
	}()

	if collection == "" {
		return nil
	}
	cleaned := path.Clean(collection)
	if isZoneHint(cleaned) && explicitZone == "" {
		b.Zone(strings.TrimPrefix(cleaned, "/"))
		return nil
	}
	if !path.IsAbs(cleaned) {
		return fmt.Errorf("cannot scope search to relative path %q", collection)
	}
	b.Condition(catalog.ColCollName, "like", cleaned+"%")
	return nil
}

// isZoneHint reports whether p is a single non-empty path segment with no
// internal separator, e.g. "/myZone".
func isZoneHint(p string) bool {
	return len(p) > 1 && strings.HasPrefix(p, "/") && !strings.Contains(p[1:], "/")
}

// SearchSpec is the declarative input of one search: the clause lists and
// the path/zone scope, independent of entity kind.
type SearchSpec struct {
	AVUs       []models.AVU
	Access     []models.Access
	Timestamps []models.Timestamp
	Collection string
	Zone       string
}

// Compile applies a full search specification to a builder using the given
// predicate builder. AVU clauses are mandatory; at most one access clause is
// allowed per query, a limitation of the catalog's general-query facility
// that is enforced here and reported as a user error.
func Compile(ctx context.Context, finder catalog.UserFinder, pb PredicateBuilder, b *Builder, spec SearchSpec) error {
	if len(spec.AVUs) == 0 {
		return fmt.Errorf("search specification has no avus")
	}
	if len(spec.Access) > 1 {
		return fmt.Errorf("%d access clauses given, but the catalog query interface supports at most one", len(spec.Access))
	}

	pb.SelectEntity(b)
	for _, avu := range spec.AVUs {
		if err := pb.AVU(b, avu); err != nil {
			return err
		}
	}
	for _, ac := range spec.Access {
		if err := pb.Access(ctx, finder, b, ac); err != nil {
			return err
		}
	}
	for _, ts := range spec.Timestamps {
		if err := pb.Timestamp(b, ts); err != nil {
			return err
		}
	}
	return ScopePath(b, spec.Collection, spec.Zone)
}
