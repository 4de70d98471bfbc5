// Package partition tracks the stored time range of every partition of a
// channel so appends and "where did I stop" queries need not list the
// channel on every call.
//
// A Tracker starts from whatever its state.Store knows. The first query that
// needs a complete picture of a stream kind lists it from the server once,
// merges local records into the listing and marks the kind complete. From then
// on successful appends are recorded locally with Record and queries are
// answered without network calls until Invalidate is called.
//
// Writers that append to the same channel through other clients are not
// reconciled: Invalidate before querying if that matters.
package partition
