package engine

import (
	"testing"

	"github.com/rhuss/antwort-agents/pkg/agent"
	"github.com/rhuss/antwort-agents/pkg/api"
	"github.com/rhuss/antwort-agents/pkg/idgen"
)

func TestAggregateOutput(t *testing.T) {
	messages := []agent.Message{
		{
			Role: agent.RoleAssistant,
			Contents: []agent.Content{
				agent.TextContent{Text: "Checking "},
				agent.TextContent{Text: "the weather."},
				agent.FunctionCallContent{CallID: "call_1", Name: "weather", Arguments: map[string]any{"city": "Rome"}},
				agent.TextReasoningContent{Text: "hidden"},
			},
		},
		{
			Role: agent.RoleTool,
			Contents: []agent.Content{
				agent.FunctionResultContent{CallID: "call_1", Result: "warm"},
			},
		},
		{
			Role: agent.RoleAssistant,
			Contents: []agent.Content{
				agent.TextContent{Text: "It is warm."},
				agent.HostedFileContent{FileID: "file-9"},
				agent.ErrorContent{Message: "forecast unavailable"},
				agent.UsageContent{},
			},
		},
	}

	output, err := aggregateOutput(idgen.New(), messages)
	if err != nil {
		t.Fatalf("aggregateOutput: %v", err)
	}

	wantTypes := []api.ItemType{
		api.ItemTypeFunctionCall,
		api.ItemTypeMessage,
		api.ItemTypeFunctionCallOutput,
		api.ItemTypeMessage,
	}
	if len(output) != len(wantTypes) {
		t.Fatalf("got %d items, want %d", len(output), len(wantTypes))
	}
	for i, item := range output {
		if item.Type != wantTypes[i] {
			t.Errorf("item[%d] type = %s, want %s", i, item.Type, wantTypes[i])
		}
		if item.Status != api.ItemStatusCompleted {
			t.Errorf("item[%d] status = %q, want completed", i, item.Status)
		}
	}

	if fc := output[0].FunctionCall; fc.Arguments != `{"city":"Rome"}` || fc.CallID != "call_1" {
		t.Errorf("function call = %+v", fc)
	}

	first := output[1].Message.Content
	if len(first) != 1 || first[0].Text != "Checking the weather." {
		t.Errorf("adjacent text not merged: %+v", first)
	}

	if out := output[2].FunctionCallOutput; out.Output != "warm" || out.CallID != "call_1" {
		t.Errorf("function output = %+v", out)
	}

	last := output[3].Message.Content
	if len(last) != 3 {
		t.Fatalf("last message has %d parts, want 3", len(last))
	}
	if last[0].Type != api.PartTypeOutputText || last[1].Type != api.PartTypeInputFile || last[2].Type != api.PartTypeRefusal {
		t.Errorf("part types = %s, %s, %s", last[0].Type, last[1].Type, last[2].Type)
	}
}

func TestAggregateOutputEmpty(t *testing.T) {
	output, err := aggregateOutput(idgen.New(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if output == nil || len(output) != 0 {
		t.Errorf("output = %v, want empty non-nil slice", output)
	}

	output, err = aggregateOutput(idgen.New(), []agent.Message{
		{Role: agent.RoleAssistant, Contents: []agent.Content{agent.TextReasoningContent{Text: "only thoughts"}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(output) != 0 {
		t.Errorf("message with only unmapped content produced %d items", len(output))
	}
}

func TestAggregateOutputSharesPartition(t *testing.T) {
	ids := idgen.New()
	output, err := aggregateOutput(ids, []agent.Message{
		{Role: agent.RoleAssistant, Contents: []agent.Content{
			agent.FunctionCallContent{Name: "f"},
			agent.TextContent{Text: "x"},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, item := range output {
		part, err := idgen.Partition(item.ID)
		if err != nil {
			t.Fatalf("Partition(%q): %v", item.ID, err)
		}
		if part != ids.PartitionKey() {
			t.Errorf("%s partition = %q, want %q", item.ID, part, ids.PartitionKey())
		}
	}
}
