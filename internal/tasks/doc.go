// Package tasks reconciles reading progress on a tracker against a catalog's release feed.
//
// # Reconciliation
//
// [Reconciler.Reconcile] runs in three phases:
//
//  1. [FetchLists] : fetch the user's current reading lists
//  2. [ResolveEntries] : for each entry, resolve it to a catalog id by cross-reference
//     and read the latest chapter released in the requested language
//  3. [Complete] : report every entry whose progress is strictly below the latest chapter
//
// Entries with no catalog match, or with nothing released in the language, are skipped silently.
//
// # Concurrency
//
// Lists run one at a time. Each list is cut into contiguous ranges by [Partition] and the ranges
// run in an errgroup. The first error cancels the group's context; other ranges stop before their
// next entry and the whole run fails without partial results. Results are joined in range order,
// so output order never depends on scheduling.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking; a nil channel disables reporting.
package tasks
