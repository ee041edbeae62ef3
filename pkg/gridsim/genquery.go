package gridsim

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/dittogrid/internal/protocol/packinstr"
	"github.com/marmos91/dittogrid/pkg/query"
)

// errUnsupportedQuery is returned for a query the simulator cannot plan:
// every query must pin its candidates with COLL_NAME or COLL_PARENT_NAME
// equality.
var errUnsupportedQuery = errors.New("query needs a COLL_NAME or COLL_PARENT_NAME equality condition")

// Select values below OrderByFlag; AggregateNone and 0 are plain columns.
const aggregateMask = packinstr.OrderByFlag - 1

// condition is one parsed InxValPair_PI entry.
type condition struct {
	index    int
	operator string
	value    string
	pattern  *regexp.Regexp
}

// Longer operators first so "not like" is not read as "like" and "<>"
// is not read as "<".
var operators = []string{"not like", "like", "<>", ">=", "<=", "=", ">", "<"}

func parseCondition(index int, s string) (condition, error) {
	s = strings.TrimSpace(s)

	c := condition{index: index}
	for _, op := range operators {
		if strings.HasPrefix(strings.ToLower(s), op) {
			c.operator = op
			s = strings.TrimSpace(s[len(op):])
			break
		}
	}
	if c.operator == "" {
		return c, fmt.Errorf("condition %q: unknown operator", s)
	}
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return c, fmt.Errorf("condition %q: value is not quoted", s)
	}
	c.value = s[1 : len(s)-1]

	if c.operator == "like" || c.operator == "not like" {
		c.pattern = likePattern(c.value)
	}
	return c, nil
}

// likePattern translates an SQL LIKE pattern (% and _ wildcards).
func likePattern(p string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range p {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}

func (c condition) matches(v string) bool {
	switch c.operator {
	case "=":
		return v == c.value
	case "<>":
		return v != c.value
	case "like":
		return c.pattern.MatchString(v)
	case "not like":
		return !c.pattern.MatchString(v)
	}

	cmp := compareValues(v, c.value)
	switch c.operator {
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	}
	return false
}

// compareValues orders integers numerically and everything else as text.
func compareValues(a, b string) int {
	x, errA := strconv.ParseInt(a, 10, 64)
	y, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// catalogRow maps a column number to its value.
type catalogRow map[int]string

func timestamp(unix int64) string {
	return query.FormatTimestamp(time.Unix(unix, 0))
}

func collectionRow(c *Object) catalogRow {
	row := catalogRow{
		int(query.FieldCollID):         strconv.FormatInt(c.ID, 10),
		int(query.FieldCollName):       c.Path,
		int(query.FieldCollParentName): c.Parent(),
		int(query.FieldCollOwnerName):  c.Owner,
		int(query.FieldCollOwnerZone):  c.Zone,
		int(query.FieldCollCreateTime): timestamp(c.Created),
		int(query.FieldCollModifyTime): timestamp(c.Modified),
		int(query.FieldCollType):       c.CollType,
	}
	switch c.CollType {
	case CollTypeLink, CollTypeStructFile:
		row[int(query.FieldCollInfo1)] = c.Target
	case CollTypeMount:
		row[int(query.FieldCollInfo1)] = c.PhysicalPath
	}
	if c.CollType != "" {
		row[int(query.FieldCollInfo2)] = c.Resource
	}
	return row
}

// dataRows returns one row per replica of obj, joined with its collection.
func dataRows(parent, obj *Object) []catalogRow {
	rows := make([]catalogRow, 0, len(obj.Replicas))
	for _, r := range obj.Replicas {
		row := collectionRow(parent)
		row[int(query.FieldDataID)] = strconv.FormatInt(obj.ID, 10)
		row[int(query.FieldDataName)] = obj.Name()
		row[int(query.FieldDataReplNum)] = strconv.Itoa(r.Number)
		row[int(query.FieldDataSize)] = strconv.FormatInt(obj.Size, 10)
		row[int(query.FieldDataOwnerName)] = obj.Owner
		row[int(query.FieldDataOwnerZone)] = obj.Zone
		row[int(query.FieldDataChecksum)] = obj.Checksum
		row[int(query.FieldDataCreateTime)] = timestamp(obj.Created)
		row[int(query.FieldDataModifyTime)] = timestamp(obj.Modified)
		rows = append(rows, row)
	}
	return rows
}

func isDataColumn(index int) bool {
	return index >= 400 && index < 500
}

// queryResult is the full answer to a query before paging.
type queryResult struct {
	columns []int
	rows    [][]string
}

// runQuery evaluates a general query against the store.
func runQuery(ctx context.Context, store Store, in packinstr.GenQueryInput) (*queryResult, error) {
	if len(in.Selects) == 0 {
		return nil, fmt.Errorf("no columns selected")
	}

	conds := make([]condition, 0, len(in.Conditions))
	for _, ic := range in.Conditions {
		c, err := parseCondition(ic.Index, ic.Condition)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}

	wantData := false
	for _, s := range in.Selects {
		wantData = wantData || isDataColumn(s.Index)
	}
	for _, c := range conds {
		wantData = wantData || isDataColumn(c.index)
	}

	candidates, err := candidateRows(ctx, store, conds, wantData)
	if err != nil {
		return nil, err
	}

	matched := candidates[:0]
	for _, row := range candidates {
		if rowMatches(row, conds) {
			matched = append(matched, row)
		}
	}

	result := &queryResult{}
	for _, s := range in.Selects {
		result.columns = append(result.columns, s.Index)
	}

	if hasAggregate(in.Selects) {
		result.rows = aggregate(matched, in.Selects)
	} else {
		result.rows = project(matched, in.Selects, in.Options&packinstr.OptionNoDistinct == 0)
	}

	orderRows(result.rows, in.Selects)
	return result, nil
}

func rowMatches(row catalogRow, conds []condition) bool {
	for _, c := range conds {
		v, ok := row[c.index]
		if !ok || !c.matches(v) {
			return false
		}
	}
	return true
}

func equality(conds []condition, index int) (string, bool) {
	for _, c := range conds {
		if c.index == index && c.operator == "=" {
			return c.value, true
		}
	}
	return "", false
}

// candidateRows gathers the rows a query can match. Virtual members of
// mounted and struct-file collections never appear, nor do children of an
// unlistable collection.
func candidateRows(ctx context.Context, store Store, conds []condition, wantData bool) ([]catalogRow, error) {
	if wantData {
		collPath, ok := equality(conds, int(query.FieldCollName))
		if !ok {
			return nil, errUnsupportedQuery
		}
		parent, ok, err := listableCollection(ctx, store, collPath)
		if err != nil || !ok {
			return nil, err
		}
		children, err := store.Children(ctx, collPath)
		if err != nil {
			return nil, err
		}
		var rows []catalogRow
		for _, child := range children {
			if child.Type == TypeDataObject && !child.Virtual {
				rows = append(rows, dataRows(parent, child)...)
			}
		}
		return rows, nil
	}

	if parentPath, ok := equality(conds, int(query.FieldCollParentName)); ok {
		parent, ok, err := listableCollection(ctx, store, parentPath)
		if err != nil || !ok {
			return nil, err
		}
		var rows []catalogRow
		// The root is its own parent.
		if parent.Path == "/" {
			rows = append(rows, collectionRow(parent))
		}
		children, err := store.Children(ctx, parentPath)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if child.IsCollection() && !child.Virtual {
				rows = append(rows, collectionRow(child))
			}
		}
		return rows, nil
	}

	if collPath, ok := equality(conds, int(query.FieldCollName)); ok {
		obj, err := store.Get(ctx, collPath)
		if errors.Is(err, ErrNoSuchObject) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if !obj.IsCollection() || obj.Virtual {
			return nil, nil
		}
		return []catalogRow{collectionRow(obj)}, nil
	}

	return nil, errUnsupportedQuery
}

func listableCollection(ctx context.Context, store Store, p string) (*Object, bool, error) {
	obj, err := store.Get(ctx, p)
	if errors.Is(err, ErrNoSuchObject) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !obj.IsCollection() || obj.Virtual || obj.Unlistable {
		return nil, false, nil
	}
	return obj, true, nil
}

func aggregateOf(s packinstr.IndexValue) query.Aggregate {
	agg := query.Aggregate(s.Value & aggregateMask)
	if agg < query.AggregateMin || agg > query.AggregateCount {
		return query.AggregateNone
	}
	return agg
}

func hasAggregate(selects []packinstr.IndexValue) bool {
	for _, s := range selects {
		if aggregateOf(s) != query.AggregateNone {
			return true
		}
	}
	return false
}

func project(rows []catalogRow, selects []packinstr.IndexValue, distinct bool) [][]string {
	out := make([][]string, 0, len(rows))
	seen := make(map[string]bool)
	for _, row := range rows {
		values := make([]string, len(selects))
		for i, s := range selects {
			values[i] = row[s.Index]
		}
		if distinct {
			key := strings.Join(values, "\x00")
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, values)
	}
	return out
}

// aggregate groups rows by the plain columns and computes the aggregated
// ones per group. Without plain columns there is always exactly one row.
func aggregate(rows []catalogRow, selects []packinstr.IndexValue) [][]string {
	type group struct {
		key  []string
		rows []catalogRow
	}

	var groups []*group
	byKey := make(map[string]*group)
	for _, row := range rows {
		var key []string
		for _, s := range selects {
			if aggregateOf(s) == query.AggregateNone {
				key = append(key, row[s.Index])
			}
		}
		k := strings.Join(key, "\x00")
		g, ok := byKey[k]
		if !ok {
			g = &group{key: key}
			byKey[k] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, row)
	}
	if len(groups) == 0 && len(selects) > 0 && !slices.ContainsFunc(selects, func(s packinstr.IndexValue) bool {
		return aggregateOf(s) == query.AggregateNone
	}) {
		groups = append(groups, &group{})
	}

	out := make([][]string, 0, len(groups))
	for _, g := range groups {
		values := make([]string, len(selects))
		k := 0
		for i, s := range selects {
			agg := aggregateOf(s)
			if agg == query.AggregateNone {
				values[i] = g.key[k]
				k++
				continue
			}
			values[i] = compute(agg, g.rows, s.Index)
		}
		out = append(out, values)
	}
	return out
}

func compute(agg query.Aggregate, rows []catalogRow, index int) string {
	if agg == query.AggregateCount {
		return strconv.Itoa(len(rows))
	}
	if len(rows) == 0 {
		return ""
	}

	switch agg {
	case query.AggregateMin, query.AggregateMax:
		best := rows[0][index]
		for _, row := range rows[1:] {
			cmp := compareValues(row[index], best)
			if (agg == query.AggregateMin && cmp < 0) || (agg == query.AggregateMax && cmp > 0) {
				best = row[index]
			}
		}
		return best

	case query.AggregateSum, query.AggregateAvg:
		var sum int64
		for _, row := range rows {
			n, _ := strconv.ParseInt(row[index], 10, 64)
			sum += n
		}
		if agg == query.AggregateAvg {
			return strconv.FormatInt(sum/int64(len(rows)), 10)
		}
		return strconv.FormatInt(sum, 10)
	}
	return ""
}

func orderRows(rows [][]string, selects []packinstr.IndexValue) {
	var keys []int
	for i, s := range selects {
		if s.Value&packinstr.OrderByFlag != 0 {
			keys = append(keys, i)
		}
	}
	if len(keys) == 0 {
		return
	}

	slices.SortStableFunc(rows, func(a, b []string) int {
		for _, k := range keys {
			if cmp := compareValues(a[k], b[k]); cmp != 0 {
				return cmp
			}
		}
		return 0
	})
}

// page renders rows [start, start+n) of r.
func (r *queryResult) page(start, n int) packinstr.GenQueryOutput {
	end := min(start+n, len(r.rows))
	out := packinstr.GenQueryOutput{RowCount: end - start}
	for i, index := range r.columns {
		col := packinstr.Column{AttributeIndex: index, Values: make([]string, 0, end-start)}
		for _, row := range r.rows[start:end] {
			col.Values = append(col.Values, row[i])
		}
		out.Columns = append(out.Columns, col)
	}
	return out
}
