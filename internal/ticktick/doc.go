// Package ticktick provides a thin client for the TickTick Open API v1.
//
// The client translates a small set of task operations into authenticated
// HTTP calls and keeps a short-lived in-memory cache of the project and task
// lists.
//
// # Caching
//
// Projects and tasks share a single freshness timestamp. A cached list is
// served only while it is younger than CacheTTL and not empty; an empty list
// is treated as never fetched. Any mutating call (create, complete, delete)
// clears both lists.
//
// # Errors
//
// HTTP failures are reported as *APIError. Only 401 and 404 get dedicated
// messages; every other non-2xx status carries the numeric code and reason.
package ticktick
