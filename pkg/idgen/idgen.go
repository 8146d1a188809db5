// Package idgen generates partition-stable identifiers for responses and
// their output items.
//
// Every identifier has the form "{category}_{entropy}{partition}". The
// entropy segment is fresh for each call; the partition segment is shared by
// all identifiers produced by one Generator so that downstream systems can
// shard everything belonging to one conversation by the same key.
package idgen

import (
	"errors"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// EntropyLength is the number of random characters in each identifier.
	EntropyLength = 32
	// PartitionLength is the number of characters in the partition key.
	PartitionLength = 16

	alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Identifier categories.
const (
	CategoryResponse       = "resp"
	CategoryMessage        = "msg"
	CategoryFunctionCall   = "func"
	CategoryFunctionOutput = "funcout"
	CategoryReasoning      = "rs"
	CategoryConversation   = "conv"
)

// ErrMalformedID is returned when a caller-supplied identifier does not end
// in a valid partition segment.
var ErrMalformedID = errors.New("malformed identifier")

// Generator produces identifiers that share one partition key.
// A Generator is safe for concurrent use.
type Generator struct {
	partition string
}

// New returns a Generator with a freshly generated partition key.
func New() *Generator {
	return &Generator{partition: random(PartitionLength)}
}

// FromID returns a Generator reusing the partition key embedded in id.
func FromID(id string) (*Generator, error) {
	p, err := Partition(id)
	if err != nil {
		return nil, err
	}
	return &Generator{partition: p}, nil
}

// ForRequest picks the partition for a response-creation request: the
// conversation ID wins, then the previous response ID, otherwise a fresh
// partition is generated.
func ForRequest(conversationID, previousResponseID string) (*Generator, error) {
	switch {
	case conversationID != "":
		g, err := FromID(conversationID)
		if err != nil {
			return nil, fmt.Errorf("conversation: %w", err)
		}
		return g, nil
	case previousResponseID != "":
		g, err := FromID(previousResponseID)
		if err != nil {
			return nil, fmt.Errorf("previous_response_id: %w", err)
		}
		return g, nil
	default:
		return New(), nil
	}
}

// Partition extracts the partition key from an identifier. The segment after
// the last underscore must be alphanumeric and at least PartitionLength
// characters long; its trailing PartitionLength characters are the key.
func Partition(id string) (string, error) {
	segment := id
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		segment = id[i+1:]
	}
	if len(segment) < PartitionLength {
		return "", fmt.Errorf("%w: %q has no partition segment of %d characters", ErrMalformedID, id, PartitionLength)
	}
	for _, c := range segment {
		if !isAlphanumeric(c) {
			return "", fmt.Errorf("%w: %q contains non-alphanumeric character %q", ErrMalformedID, id, c)
		}
	}
	return segment[len(segment)-PartitionLength:], nil
}

// PartitionKey returns the partition shared by all IDs from this generator.
func (g *Generator) PartitionKey() string {
	return g.partition
}

// Generate returns a new identifier in the given category.
func (g *Generator) Generate(category string) string {
	return category + "_" + random(EntropyLength) + g.partition
}

// ResponseID returns a new response identifier.
func (g *Generator) ResponseID() string { return g.Generate(CategoryResponse) }

// MessageID returns a new message item identifier.
func (g *Generator) MessageID() string { return g.Generate(CategoryMessage) }

// FunctionCallID returns a new function call item identifier.
func (g *Generator) FunctionCallID() string { return g.Generate(CategoryFunctionCall) }

// FunctionOutputID returns a new function call output item identifier.
func (g *Generator) FunctionOutputID() string { return g.Generate(CategoryFunctionOutput) }

// ReasoningID returns a new reasoning item identifier.
func (g *Generator) ReasoningID() string { return g.Generate(CategoryReasoning) }

// ConversationID returns a new conversation identifier.
func (g *Generator) ConversationID() string { return g.Generate(CategoryConversation) }

func random(n int) string {
	s, err := gonanoid.Generate(alphabet, n)
	if err != nil {
		// Only fails when the system random source is unavailable.
		panic("idgen: random source failed: " + err.Error())
	}
	return s
}

func isAlphanumeric(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
