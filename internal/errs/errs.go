// Package errs defines the error types the HTTP surface returns.
//
// Every handler error ends up as an HTTPError so clients always receive the
// same JSON shape: code, message, status, override, field errors and an
// optional action.
package errs
