// Package api provides the REST client for the dashboard's snapshot
// endpoints. Every endpoint returns a {"success": bool, "data": ...}
// envelope; a failed fetch is surfaced to the caller without retry.
package api
