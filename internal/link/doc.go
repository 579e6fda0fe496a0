// Package link implements the Connection Supervisor.
//
// The supervisor:
//   - Owns exactly one streaming WebSocket connection
//   - Reconnects on non-normal closure with capped exponential backoff
//     (1s base, 15s cap, doubling per consecutive failure)
//   - Surfaces a distinct bootstrap-timeout error when the very first
//     attempt never reaches open
//   - Forwards raw frames verbatim, in arrival order, to the classifier
package link
