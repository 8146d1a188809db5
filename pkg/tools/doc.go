// Package tools prepares function tool definitions for agents: strict-mode
// augmentation of JSON schemas and schema generation from Go types.
//
// Both operate on raw JSON so that schemas supplied by clients pass through
// with their key order intact.
package tools
