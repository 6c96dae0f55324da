// Package client contains client-side building blocks for notekeeper.
//
// # Overview
//
// The package provides:
//  1. The narrow network transport contract (see the API interface): JSON
//     GET/POST/PATCH/DELETE against paths relative to a configured API host,
//     each call carrying an optional bearer token, plus a liveness Ping.
//  2. A concrete net/http implementation (see HTTPClient) that maps HTTP
//     status codes and connection failures to sentinel errors.
//  3. Local persistence bootstrap utilities (InitDatabase, NewRepositories)
//     wiring an SQLite database and applying embedded goose migrations, and
//     the destructive recovery path ResetLocalData.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable, ErrUnauthorized, ErrNotFound. Other non-2xx
// responses are returned as *StatusError.
package client
