// Package snapshot implements the Snapshot Loader: the one-time REST
// bootstrap that fills the stores before stream frames are applied.
package snapshot
