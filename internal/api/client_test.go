package api

import (
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestTranslateModelForBedrock(t *testing.T) {
	tests := []struct {
		name  string
		model anthropic.Model
		want  anthropic.Model
	}{
		{
			"known model maps to inference profile",
			anthropic.ModelClaudeSonnet4_20250514,
			"us.anthropic.claude-sonnet-4-20250514-v1:0",
		},
		{
			"already bedrock format passes through",
			"us.anthropic.claude-sonnet-4-20250514-v1:0",
			"us.anthropic.claude-sonnet-4-20250514-v1:0",
		},
		{
			"custom model passes through",
			"my-custom-model",
			"my-custom-model",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translateModelForBedrock(tt.model); got != tt.want {
				t.Errorf("translateModelForBedrock(%q) = %q, want %q", tt.model, got, tt.want)
			}
		})
	}
}

func TestNewClientBedrockTranslatesDefaultModel(t *testing.T) {
	client, err := NewClient(ClientConfig{
		UseAWSBedrock: true,
		AWSRegion:     "us-west-2",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if !strings.HasPrefix(string(client.Model()), "us.anthropic.") {
		t.Errorf("Model = %q, want a Bedrock inference profile", client.Model())
	}
}

func TestTokenTracker(t *testing.T) {
	tr := NewTokenTracker()

	tr.Add(100, 50)
	tr.Add(20, 10)

	in, out := tr.Total()
	if in != 120 || out != 60 {
		t.Errorf("Total = (%d, %d), want (120, 60)", in, out)
	}
	if tr.Calls() != 2 {
		t.Errorf("Calls = %d, want 2", tr.Calls())
	}
}
