// Package api defines the wire types of the Responses API as served for
// hosted agents.
//
// The package performs no I/O. All types produce JSON compatible with the
// OpenAI Responses API wire format so that existing client libraries can talk
// to an agent without modification.
//
// Core types:
//   - [Item]: output or input unit (message, function_call, function_call_output, reasoning)
//   - [ContentPart]: one part of a message item (output_text, refusal, input_*)
//   - [CreateResponseRequest]: client request addressed to an agent
//   - [Response]: response snapshot carried by envelope events and sync replies
//   - [StreamEvent]: server-sent event for streaming responses
//   - [APIError]: structured error with type, code, param, and message
package api
