// Package database holds PostgreSQL connection setup for the signal
// journal.
package database
