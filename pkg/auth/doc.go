// Package auth resolves the bearer credential on each request into the
// identity inventory operations run for.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (identity found), No (credentials
// invalid), or Abstain (can't handle). A configurable default voter decides
// when all authenticators abstain.
//
// A request with no usable credential fails as unauthenticated; a request
// whose credential is rejected fails as invalid_credential. Both are
// answered with 401 before any route handler runs. On success the
// Identity is attached to the request context for the HTTP adapter,
// which converts it to an explicit api.Caller.
package auth
