// Package engine serves agents through the Responses API. The Engine type
// implements transport.ResponseCreator: it resolves the target agent,
// translates the request input into agent messages, runs the agent and
// projects its output onto Responses items, either as a complete response
// or as an ordered stream of events.
//
// The streaming path is built from three pieces. A sequence numbers every
// event of one response. Event generators, one per content kind, turn the
// fragments of one output item into its item and content-part lifecycle
// events. The stream projector detects item boundaries in the agent's
// update stream, picks generators from a capability table, accumulates
// usage, and wraps everything in the response.created / response.in_progress
// / terminal envelope events.
package engine
