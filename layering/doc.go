// Package layering merges configuration snapshots ordered from strongest to
// weakest and names the scopes (builtin, global, store) they come from.
package layering
