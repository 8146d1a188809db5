// Package transport defines the protocol-agnostic contracts between the
// HTTP layer and the engine: the ResponseCreator handler, the
// ResponseWriter it writes to, composable middleware, the in-flight
// registry used to cancel streams, and mapping of API errors to HTTP.
package transport
