// Package services talks to the two remote systems anidex reconciles: the AniList progress tracker and the MangaDex catalog.
//
// # Interfaces
//
// The reconciliation engine depends only on three small interfaces:
//   - [ProgressLister] : a user's in-progress reading lists
//   - [CatalogResolver] : tracker entry to catalog id
//   - [ProgressFetcher] : latest published unit for a catalog id and language
//
// [AniListService] implements the first; [MangaDexService] implements the other two.
//
// # Transport
//
// Both services send requests through an [Executor]. [RetryingClient] is the production one:
// a 429 is waited out for exactly the server's Retry-After and the same request is sent again,
// with no cap on attempts. Every attempt carries the configured User-Agent. An optional
// [rate.Limiter] paces requests client-side so the server rarely needs to push back.
//
// # Cross-referencing
//
// MangaDex search results are walked in popularity order and the first manga whose
// attributes.links.al equals the AniList media id is the match. Titles alone never match.
//
// # Latest units
//
// The chapter feed is ordered by chapter number, descending, with a page size of one.
// A chapter with a null number is a oneshot and counts as [models.OneshotUnit].
//
// # Error Handling
//
// Failures surface as typed errors from the shared package:
//   - [shared.TransportError] : the request never produced a response
//   - [shared.HTTPError] : non-200, non-429 status
//   - [shared.ProtocolError] : 429 without a usable Retry-After
//   - [shared.DecodeError] : a response did not have the expected shape
package services
