package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/five82/tracetail/internal/traces"
	"github.com/five82/tracetail/internal/vtselect"
)

// QueryOptions configure a one-shot grouped query.
type QueryOptions struct {
	Query   string
	Limit   int
	Range   time.Duration
	GroupBy string
	Page    int
	Rows    int
	JSON    bool
}

// PrintQuery runs one explore query and writes the requested page of the
// grouped result to w.
func PrintQuery(ctx context.Context, w io.Writer, fetcher vtselect.Fetcher, opts QueryOptions, now time.Time) error {
	records, err := fetcher.Query(ctx, vtselect.QueryParams{
		Query: opts.Query,
		Limit: opts.Limit,
		Start: now.Add(-opts.Range),
		End:   now,
	})
	if err != nil {
		return err
	}

	groups := traces.GroupBy(records, opts.GroupBy, !traces.HasSortPipe(opts.Query))
	pages := traces.PageCount(len(records), opts.Rows)
	page := min(max(opts.Page, 1), pages)

	for _, g := range traces.Window(groups, page, opts.Rows) {
		header := strings.Join(g.Pairs, " ")
		if header == "" {
			header = "(" + opts.GroupBy + " missing)"
		}
		if _, err := fmt.Fprintf(w, "== %s (%d)\n", header, g.Total); err != nil {
			return err
		}
		for _, rec := range g.Records {
			line, err := recordLine(rec, opts.JSON)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	_, err = fmt.Fprintf(w, "-- page %d/%d, %d groups, %d entries\n", page, pages, len(groups), len(records))
	return err
}

func recordLine(rec traces.Record, raw bool) (string, error) {
	if raw {
		data, err := json.Marshal(rec.Public())
		if err != nil {
			return "", fmt.Errorf("encode record: %w", err)
		}
		return string(data), nil
	}
	parts := []string{rec.Str(traces.TimeField), rec.Msg()}
	for _, name := range rec.Fields() {
		if name == traces.TimeField || name == traces.MsgField {
			continue
		}
		parts = append(parts, name+"="+rec.Str(name))
	}
	return strings.Join(parts, " "), nil
}

// HitsOptions configure a one-shot hits request.
type HitsOptions struct {
	Query       string
	Range       time.Duration
	Bars        int
	Field       string
	FieldsLimit int
}

// PrintHits writes the hits series for the query, one line per series.
func PrintHits(ctx context.Context, w io.Writer, fetcher vtselect.Fetcher, opts HitsOptions, now time.Time) error {
	hits, err := fetcher.Hits(ctx, vtselect.HitsParams{
		Query:       opts.Query,
		Start:       now.Add(-opts.Range),
		End:         now,
		Bars:        opts.Bars,
		Field:       opts.Field,
		FieldsLimit: opts.FieldsLimit,
	})
	if err != nil {
		return err
	}
	for _, h := range hits {
		label := "other"
		if !h.IsOther {
			label = formatHitFields(h.Fields)
		}
		if _, err := fmt.Fprintf(w, "%8d  %s\n", h.Total, label); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "%8d  total\n", vtselect.TotalHits(hits))
	return err
}

func formatHitFields(fields map[string]string) string {
	rec := traces.Record(fields)
	parts := make([]string, 0, len(fields))
	for _, name := range rec.Fields() {
		parts = append(parts, name+"="+fields[name])
	}
	return strings.Join(parts, " ")
}

// ValuesLister lists the distinct values of a field. *vtselect.Client
// implements it.
type ValuesLister interface {
	FieldValues(ctx context.Context, query, field string, limit int) ([]vtselect.FieldValue, error)
}

// PrintValues writes the values of field among traces matching query.
func PrintValues(ctx context.Context, w io.Writer, lister ValuesLister, query, field string, limit int) error {
	values, err := lister.FieldValues(ctx, query, field, limit)
	if err != nil {
		return err
	}
	for _, v := range values {
		if _, err := fmt.Fprintf(w, "%8d  %s\n", v.Hits, v.Value); err != nil {
			return err
		}
	}
	return nil
}
