package traces

import (
	"sort"
	"time"
)

// Well-known record fields.
const (
	IDField     = "_trace_id"
	TimeField   = "_time"
	MsgField    = "_msg"
	StreamField = "_stream"
)

// Record is a single trace record: field name to string value.
type Record map[string]string

// ID returns the client-side identifier assigned when the record was decoded.
func (r Record) ID() string { return r[IDField] }

// Msg returns the _msg field.
func (r Record) Msg() string { return r[MsgField] }

// Stream returns the _stream field.
func (r Record) Stream() string { return r[StreamField] }

// Str returns an arbitrary field, or "" when absent.
func (r Record) Str(field string) string { return r[field] }

// Time returns the parsed _time field, or the zero time when missing or malformed.
func (r Record) Time() time.Time {
	value := r[TimeField]
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Fields returns the record's field names in sorted order, excluding the
// internal identifier.
func (r Record) Fields() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		if name == IDField {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Public returns a copy of the record without the internal identifier, as
// shown in raw JSON views and exports.
func (r Record) Public() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}

// WithID returns a copy of the record carrying the given identifier.
func (r Record) WithID(id string) Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[IDField] = id
	return out
}
