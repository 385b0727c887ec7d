// Package index maintains the in-memory media index.
//
// The index holds an immutable snapshot of the artifact store: every
// artifact keyed by identifier, the time of the scan, and whether a scan
// has happened at all. Readers load the snapshot through an atomic pointer
// and never block. A refresh builds a complete new snapshot from a fresh
// directory scan and swaps it in; a failed scan keeps the old one.
//
// Refreshes are opportunistic:
//   - once when the process starts ([Index.Start])
//   - on any read that finds the snapshot older than the freshness window
//     (30 seconds by default) via [Index.EnsureFresh]
//   - after [Index.Invalidate], which the conversion cache calls when a new
//     artifact is committed and the thumbnail worker calls after a pass that
//     generated thumbnails
//
// [Index.NeedsRefresh] only tracks the freshness window. An invalidation is
// consumed by the next [Index.EnsureFresh] and shows up in [Index.Status].
//
// Every successful refresh wakes a background worker that generates missing
// thumbnails. Refreshes never wait for it.
package index
