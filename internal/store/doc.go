// Package store implements the Reconciling Store: a keyed in-memory
// collection holding the authoritative view of one logical data set.
//
// A store is bootstrapped from a REST snapshot and then applies an
// unbounded stream of incremental updates under one of three merge
// policies:
//
//   - UpsertByKey: orders keyed by OrderID, last write wins
//   - ReplaceGroup: screening results keyed by group, replaced wholesale,
//     with an insert-if-absent path for single new matches
//   - PrependDedup: the buy-signal feed, newest first, deduplicated by
//     ticker case-insensitively
//
// The presentation layer reads copies through the accessors and never
// mutates a store directly; all mutation funnels through the classifier.
package store
