// Package client contains client-side building blocks for catalogkeeper.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) to talk
//     to the catalog server: Login/Register/Verify, product CRUD, Ping and
//     image upload.
//  2. A concrete HTTP/JSON implementation (see HTTPClient) that attaches the
//     cached bearer token, bounds every request with a timeout, retries a
//     transient network failure once, and maps status codes to sentinel
//     errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) for the CLI,
//     wiring an SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable, ErrUnauthorized, ErrForbidden, ErrNotFound,
// ErrBadRequest and ErrServer.
package client
