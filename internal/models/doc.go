// Package models defines the entities that flow through a reconciliation run.
//
// The package contains two categories of types:
//
// 1. Inputs decoded from the remote services
//   - [ReadingList] : One named list from the progress-tracking service
//   - [ReadingEntry] : A title the user is currently reading, with recorded progress
//   - [CatalogMatch] : The catalog entry whose cross-reference equals an entry's external id
//   - [LatestUnit] : The newest published chapter number in a language
//
// 2. Output
//   - [UnreadItem] : An entry whose recorded progress is behind the latest unit
//
// Nothing here is persisted; every value lives for a single run.
package models
