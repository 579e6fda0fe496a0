// Package reconcile wires classified stream payloads into the stores:
// order upserts, wholesale group replaces, single-match inserts, and
// buy-feed prepends. A payload missing a required field skips that frame
// only.
package reconcile
