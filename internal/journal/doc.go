// Package journal batch-writes accepted buy signals to PostgreSQL. The
// journal is an optional audit sink; in-memory reconciliation never waits
// on it.
package journal
