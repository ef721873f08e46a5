// Package types defines the shared data model for the stratum retrieval
// layer: tenant keys, entity and chunk records, filter expressions, and
// query results.
//
// All values in this package are request-scoped and immutable once
// constructed. Records are read-only projections of external storage;
// the retrieval pipeline never mutates them.
package types
