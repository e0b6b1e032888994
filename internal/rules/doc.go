// Package rules holds the concrete modifier rule kinds and the catalog
// that maps a kind name to its implementation.
//
// Every rule returns its pool unchanged while its set is disabled, and
// routes every decision through modifier.Set.SetModels.
package rules
