package vtselect

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/five82/tracetail/internal/logging"
	"github.com/five82/tracetail/internal/traces"
)

const maxQueryLine = 4 << 20

// QueryParams configures /select/tracesql/query requests.
type QueryParams struct {
	Query string
	Limit int
	Start time.Time
	End   time.Time
}

// Query runs a one-shot query and returns the decoded records in the order
// the server sent them. Malformed lines are skipped.
func (c *Client) Query(ctx context.Context, params QueryParams) ([]traces.Record, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	form := url.Values{}
	form.Set("query", strings.TrimSpace(params.Query))
	if params.Limit > 0 {
		form.Set("limit", strconv.Itoa(params.Limit))
	}
	setRange(form, params.Start, params.End)

	resp, err := c.post(ctx, c.http, "/select/tracesql/query", form)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	log := logging.Component("vtselect")
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxQueryLine)
	var records []traces.Record
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		rec, err := traces.ParseLine(line)
		if err != nil {
			log.Warn().Int("line", lineNo).Err(err).Msg("skipping malformed query result")
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("read query response: %w", err)
	}
	return records, nil
}

// HitsParams configures /select/tracesql/hits requests.
type HitsParams struct {
	Query       string
	Start       time.Time
	End         time.Time
	Bars        int
	Field       string
	FieldsLimit int
}

// Hit is one series of the hits response.
type Hit struct {
	Fields     map[string]string `json:"fields"`
	Timestamps []string          `json:"timestamps"`
	Values     []int             `json:"values"`
	Total      int               `json:"total"`

	// IsOther marks the series that aggregates everything beyond fields_limit.
	IsOther bool `json:"-"`
}

type hitsResponse struct {
	Hits *[]Hit `json:"hits"`
}

// HitsStep returns the bucket width in milliseconds for bars buckets
// between start and end. It never returns less than 1.
func HitsStep(start, end time.Time, bars int) int64 {
	if bars <= 0 {
		bars = 1
	}
	ms := end.Sub(start).Milliseconds()
	step := int64(math.Ceil(float64(ms) / float64(bars)))
	if step < 1 {
		return 1
	}
	return step
}

// Hits fetches the histogram of matching traces, split by Field.
func (c *Client) Hits(ctx context.Context, params HitsParams) ([]Hit, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	form := url.Values{}
	form.Set("query", strings.TrimSpace(params.Query))
	form.Set("step", strconv.FormatInt(HitsStep(params.Start, params.End, params.Bars), 10)+"ms")
	setRange(form, params.Start, params.End)
	if params.Field != "" {
		form.Set("field", params.Field)
	}
	if params.FieldsLimit > 0 {
		form.Set("fields_limit", strconv.Itoa(params.FieldsLimit))
	}

	resp, err := c.post(ctx, c.http, "/select/tracesql/hits", form)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var payload hitsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.Hits == nil {
		return nil, fmt.Errorf("decode response: no 'hits' field")
	}
	hits := *payload.Hits
	for i := range hits {
		hits[i].IsOther = len(hits[i].Fields) == 0
	}
	SortHits(hits)
	return hits, nil
}

// SortHits orders the "other" series first, then by total descending.
func SortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].IsOther != hits[j].IsOther {
			return hits[i].IsOther
		}
		return hits[i].Total > hits[j].Total
	})
}

// TotalHits sums the totals of all series.
func TotalHits(hits []Hit) int {
	total := 0
	for _, h := range hits {
		total += h.Total
	}
	return total
}

// FieldValue is one entry of the field_values response.
type FieldValue struct {
	Value string `json:"value"`
	Hits  int    `json:"hits"`
}

type fieldValuesResponse struct {
	Values []FieldValue `json:"values"`
}

// FieldValues lists values of field among traces matching query. Results
// are cached per query, field and limit.
func (c *Client) FieldValues(ctx context.Context, query, field string, limit int) ([]FieldValue, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, fmt.Errorf("field required")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		query = "*"
	}
	key := query + "|" + field + "|" + strconv.Itoa(limit)
	if cached, ok := c.values.Get(key); ok {
		return cached, nil
	}

	values := url.Values{}
	values.Set("query", query)
	values.Set("field", field)
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	resp, err := c.get(ctx, "/select/tracesql/field_values", values)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var payload fieldValuesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	c.values.Set(key, payload.Values)
	return payload.Values, nil
}

func setRange(form url.Values, start, end time.Time) {
	if !start.IsZero() {
		form.Set("start", start.UTC().Format(time.RFC3339Nano))
	}
	if !end.IsZero() {
		form.Set("end", end.UTC().Format(time.RFC3339Nano))
	}
}
