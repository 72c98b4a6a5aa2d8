// Package vtselect provides an HTTP client for the VictoriaTraces select API.
//
// # Endpoints
//
//   - POST /select/tracesql/tail: long-lived NDJSON stream of new traces
//   - POST /select/tracesql/query: one-shot NDJSON result set
//   - POST /select/tracesql/hits: per-bucket hit counts split by a field
//   - GET /select/tracesql/field_values: distinct values of a field
//
// All requests carry the AccountID and ProjectID tenant headers when they
// are configured.
//
// # Timeouts
//
// One-shot calls use an http.Client with a 5 second timeout. The tail stream
// uses a client without a timeout; its lifetime is bounded only by the
// request context, which livetail.Session cancels on stop or restart.
//
// # Errors
//
// Non-2xx answers are returned as *StatusError carrying the path, the code
// and the first 512 bytes of the body. Transport failures are wrapped with
// fmt.Errorf:
//
//   - "execute request: dial tcp 127.0.0.1:10428: connect: connection refused"
//   - "api /select/tracesql/hits returned status 400: cannot parse query"
//   - "decode response: no 'hits' field"
//
// # URL Construction
//
// The server address is normalised the same way for every caller:
//
//   - "" → http://127.0.0.1:10428
//   - "traces.local:10428" → http://traces.local:10428
//   - "https://traces.example.com/select/vmui" → https://traces.example.com
//
// Field values are cached in a FIFO cache keyed by query, field and limit,
// so repeated autocomplete lookups do not hit the server.
package vtselect
