package agent

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type namedAgent string

func (a namedAgent) Name() string        { return string(a) }
func (a namedAgent) Description() string { return "" }
func (a namedAgent) Run(context.Context, []Message, *RunOptions) (*Response, error) {
	return &Response{}, nil
}
func (a namedAgent) RunStream(context.Context, []Message, *RunOptions) (<-chan Update, error) {
	ch := make(chan Update)
	close(ch)
	return ch, nil
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(namedAgent("writer"), namedAgent("assistant"))
	if err != nil {
		t.Fatalf("NewRegistry error: %v", err)
	}

	if got := r.Names(); !reflect.DeepEqual(got, []string{"assistant", "writer"}) {
		t.Errorf("Names() = %v", got)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}

	a, err := r.Get("writer")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if a.Name() != "writer" {
		t.Errorf("Name() = %q", a.Name())
	}

	if _, err := r.Get("missing"); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrAgentNotFound", err)
	}
}

func TestRegistryRejectsDuplicatesAndEmptyNames(t *testing.T) {
	if _, err := NewRegistry(namedAgent("a"), namedAgent("a")); err == nil {
		t.Error("expected duplicate name error")
	}
	if _, err := NewRegistry(namedAgent("")); err == nil {
		t.Error("expected empty name error")
	}
	r, _ := NewRegistry()
	if err := r.Register(nil); err == nil {
		t.Error("expected nil agent error")
	}
}
