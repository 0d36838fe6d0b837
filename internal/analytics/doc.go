// Package analytics implements the scoring heuristics behind the analytics
// tools. Every function is pure over an fpl.Snapshot.
package analytics
