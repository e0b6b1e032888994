// Package codec serializes persisted selections and trace snapshots as
// canonical JSON.
//
// Canonical output follows RFC 8785 for the subset of JSON this module
// needs: object keys sorted by UTF-16 code units, no insignificant
// whitespace, no HTML escaping. Strings are written as given and must be
// valid UTF-8; tracking ids are already NFC-normalised by the tree. Two
// equal values always produce byte-identical output, which keeps
// persisted tokens and golden traces stable across runs.
package codec
