// Package client contains the outbound API layer of the carpool client.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the API interface):
//     Get/Post/Put/Delete/Patch and GetPaginated, plus Login and Logout.
//  2. A concrete net/http implementation (see Client) that attaches the bearer
//     token, bounds each attempt with a timeout, classifies every failure into
//     an apperr.AppError and reports it before returning.
//  3. A gRPC unary interceptor (see UnaryAuthInterceptor) applying the same
//     token handling to gRPC connections.
//  4. Local persistence bootstrap utilities (InitDatabase, RunMigrations) for
//     the SQLite token store, applying embedded goose migrations.
//
// # Error Handling
//
// Every error returned by Client is an apperr.AppError and can be matched with
// errors.As against the concrete kinds (*apperr.ValidationError,
// *apperr.APIError, ...).
//
// Exactly one failure is recovered automatically: a 401 on the first attempt
// triggers a token refresh through the auth.Coordinator and a single retry
// with the new token. Other errors are returned to the caller untouched unless
// the call opted into WithRetry.
//
// Concurrency & Contexts
//
// Client is safe for concurrent use. All operations accept context.Context;
// cancelling one call does not affect other calls or a refresh in flight.
package client
