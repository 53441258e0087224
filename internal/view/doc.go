// Package view turns section descriptors and opaque records into
// render-ready listings and edit forms. It performs no I/O: callers fetch
// records, hand them in, and route the affordances it exposes back to
// their own handlers.
package view
