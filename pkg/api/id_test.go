package api

import (
	"strings"
	"testing"
)

func TestValidateResponseID(t *testing.T) {
	valid := "resp_" + strings.Repeat("a1B2", 12)
	tests := []struct {
		id   string
		want bool
	}{
		{valid, true},
		{"resp_short", false},
		{"msg_" + strings.Repeat("a1B2", 12), false},
		{"resp_" + strings.Repeat("a1-2", 12), false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateResponseID(tt.id); got != tt.want {
			t.Errorf("ValidateResponseID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestValidateItemID(t *testing.T) {
	tail := strings.Repeat("x9", 24)
	tests := []struct {
		id   string
		want bool
	}{
		{"msg_" + tail, true},
		{"func_" + tail, true},
		{"funcout_" + tail, true},
		{"rs_" + tail, true},
		{"resp_" + tail, false},
		{"item_" + tail, false},
		{"msg_" + tail[:20], false},
	}
	for _, tt := range tests {
		if got := ValidateItemID(tt.id); got != tt.want {
			t.Errorf("ValidateItemID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
