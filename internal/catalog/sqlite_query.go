package catalog

import (
	"context"
	"fmt"
	"strings"
)

// sqlExprs maps query columns to SQL expressions over the embedded schema.
// Collection scope selects from colls c; data-object scope from objs d
// joined to colls c. Metadata and access rows join in as m and a, users as
// u.
var sqlExprs = map[Column]string{
	ColCollID:         "c.id",
	ColCollName:       "c.name",
	ColCollParentName: "c.parent",
	ColCollOwnerName:  "c.owner",
	ColCollCreateTime: "c.created",
	ColCollModifyTime: "c.modified",
	ColCollAttribute:  "m.attr",
	ColCollValue:      "m.value",
	ColCollUnits:      "m.units",

	ColCollAccessUserID: "a.user_id",
	ColCollAccessLevel:  "a.level",

	ColDataID:         "d.id",
	ColDataName:       "d.name",
	ColDataSize:       "d.size",
	ColDataChecksum:   "d.checksum",
	ColDataCreateTime: "d.created",
	ColDataModifyTime: "d.modified",
	ColDataReplNum:    "d.repl_num",
	ColDataReplStatus: "d.repl_status",
	ColDataAttribute:  "m.attr",
	ColDataValue:      "m.value",
	ColDataUnits:      "m.units",

	ColDataAccessUserID: "a.user_id",
	ColDataAccessLevel:  "a.level",

	ColUserID:   "u.id",
	ColUserName: "u.name",
	ColUserZone: "u.zone",
}

func isDataColumn(c Column) bool { return c >= 600 && c < 700 }
func isMetaColumn(c Column) bool {
	return (c >= 510 && c <= 512) || (c >= 610 && c <= 612)
}
func isAccessColumn(c Column) bool {
	return c == ColCollAccessUserID || c == ColCollAccessLevel ||
		c == ColDataAccessUserID || c == ColDataAccessLevel ||
		(c >= 700 && c < 800)
}
func isUserColumn(c Column) bool { return c >= 700 && c < 800 }

// RunQuery translates one compiled query into SQL and returns one chunk of
// rows. An empty chunk is reported as ErrNoRows whether the query matched
// nothing or a previous chunk consumed the last row; callers tell the two
// apart by whether they already received a chunk.
func (s *SQLite) RunQuery(ctx context.Context, q *Query) (*Chunk, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if len(q.Select) == 0 {
		return nil, NewError(CodeInvalidArgument, "query selects no columns")
	}

	dataScope := false
	needMeta := false
	needAccess := false
	for _, sel := range q.Select {
		dataScope = dataScope || isDataColumn(sel.Column)
		needMeta = needMeta || isMetaColumn(sel.Column)
		needAccess = needAccess || isAccessColumn(sel.Column)
	}
	for _, cond := range q.Conditions {
		dataScope = dataScope || isDataColumn(cond.Column)
		needMeta = needMeta || isMetaColumn(cond.Column)
		needAccess = needAccess || isAccessColumn(cond.Column)
	}

	var from strings.Builder
	kind := "'c'"
	entity := "c.id"
	if dataScope {
		from.WriteString("objs d JOIN colls c ON d.coll_id = c.id")
		kind = "'d'"
		entity = "d.id"
	} else {
		from.WriteString("colls c")
	}
	if needMeta {
		fmt.Fprintf(&from, " JOIN meta m ON m.owner_kind = %s AND m.owner_id = %s", kind, entity)
	}
	if needAccess {
		fmt.Fprintf(&from, " JOIN access a ON a.owner_kind = %s AND a.owner_id = %s", kind, entity)
		fmt.Fprintf(&from, " JOIN users u ON u.id = a.user_id")
	}

	selects := make([]string, len(q.Select))
	for i, sel := range q.Select {
		expr, ok := sqlExprs[sel.Column]
		if !ok {
			return nil, NewError(CodeInvalidArgument, "unknown column %d", sel.Column)
		}
		selects[i] = expr
	}

	var wheres []string
	var args []interface{}
	for _, cond := range q.Conditions {
		expr, ok := sqlExprs[cond.Column]
		if !ok {
			return nil, NewError(CodeInvalidArgument, "unknown column %d", cond.Column)
		}
		clause, condArgs, err := sqlCondition(expr, cond)
		if err != nil {
			return nil, err
		}
		wheres = append(wheres, clause)
		args = append(args, condArgs...)
	}
	if q.Zone != "" {
		wheres = append(wheres, "(c.name = ? OR c.name LIKE ?)")
		args = append(args, "/"+q.Zone, "/"+q.Zone+"/%")
	}

	maxRows := q.MaxRows
	if maxRows <= 0 {
		maxRows = s.cfg.ChunkSize
	}

	var sb strings.Builder
	sb.WriteString("SELECT DISTINCT ")
	sb.WriteString(strings.Join(selects, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(from.String())
	if len(wheres) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(wheres, " AND "))
	}
	sb.WriteString(" ORDER BY ")
	for i := range selects {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d", i+1)
	}
	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, maxRows, q.Continue)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, NewError(CodeInternal, "query failed: %v", err)
	}
	defer rows.Close()

	var chunk Chunk
	for rows.Next() {
		row := make([]string, len(q.Select))
		dest := make([]interface{}, len(row))
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, NewError(CodeInternal, "row scan failed: %v", err)
		}
		chunk.Rows = append(chunk.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, NewError(CodeInternal, "query failed: %v", err)
	}

	if len(chunk.Rows) == 0 {
		return nil, ErrNoRows
	}
	if len(chunk.Rows) == maxRows {
		chunk.Continue = q.Continue + len(chunk.Rows)
	}
	return &chunk, nil
}

// sqlCondition renders one condition to a SQL clause. The n-prefixed
// operator tokens request numeric comparison of both sides.
func sqlCondition(expr string, cond Condition) (string, []interface{}, error) {
	switch cond.Op {
	case "=", ">", "<", ">=", "<=":
		return fmt.Sprintf("%s %s ?", expr, cond.Op), []interface{}{cond.Literal}, nil
	case "like":
		return fmt.Sprintf("%s LIKE ?", expr), []interface{}{cond.Literal}, nil
	case "n>", "n<", "n>=", "n<=":
		op := strings.TrimPrefix(cond.Op, "n")
		return fmt.Sprintf("CAST(%s AS INTEGER) %s CAST(? AS INTEGER)", expr, op),
			[]interface{}{cond.Literal}, nil
	default:
		return "", nil, NewError(CodeInvalidArgument, "unknown operator %q", cond.Op)
	}
}
