// Package model defines the domain records synchronized from the signals
// server: orders, float-screening results, toplist rows, and buy signals.
//
// Each type carries a Key method returning its natural key; stores fold the
// key case-insensitively when deduplicating.
package model
