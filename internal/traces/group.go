package traces

import (
	"regexp"
	"sort"
	"strings"
)

// Ungrouped is the group-by value that places every record in one group.
// No record carries this field, so all of them share the empty key.
const Ungrouped = "Ungrouped"

// Group is a bucket of records sharing the same grouping key.
type Group struct {
	Keys    []string
	Records []Record
	Pairs   []string
	Total   int
}

// KeysString joins the group keys into a single identifier.
func (g Group) KeysString() string {
	return strings.Join(g.Keys, "")
}

// GroupBy buckets records by the value of field. Buckets keep first-seen
// order before being stably sorted by size, largest first. When newestFirst
// is set the records inside each bucket are reversed; the select API returns
// rows oldest first unless the query sorts them explicitly.
func GroupBy(records []Record, field string, newestFirst bool) []Group {
	if len(records) == 0 {
		return nil
	}
	index := make(map[string]int)
	var groups []Group
	for _, rec := range records {
		value := rec[field]
		idx, ok := index[value]
		if !ok {
			idx = len(groups)
			index[value] = idx
			groups = append(groups, Group{
				Keys:  []string{value},
				Pairs: StreamPairs(value),
			})
		}
		groups[idx].Records = append(groups[idx].Records, rec)
	}

	for i := range groups {
		if newestFirst {
			reverse(groups[i].Records)
		}
		groups[i].Total = len(groups[i].Records)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Total > groups[j].Total
	})
	return groups
}

// StreamPairs splits a stream label set such as {a="x",b="y"} into its
// key=value pairs. Any other value is returned as a single pair.
func StreamPairs(value string) []string {
	var pairs []string
	if len(value) > 2 && strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}") {
		pairs = strings.Split(value[1:len(value)-1], ",")
	} else {
		pairs = []string{value}
	}
	out := pairs[:0]
	for _, p := range pairs {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var sortPipe = regexp.MustCompile(`\|\s*(sort|order)\b`)

// HasSortPipe reports whether the query already orders its results.
func HasSortPipe(query string) bool {
	return sortPipe.MatchString(query)
}

func reverse(records []Record) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}
