package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/ferry/internal/todogen"
)

// stepPrompt asks for a flat JSON array of step strings. The DELEGATED
// sentinel lets the model decline when the description is already a
// single actionable step.
const stepPrompt = `Break the following task into a short ordered list of concrete steps.

Task: %s

Respond with ONLY a JSON array of step strings, for example:
["First step", "Second step"]

If the task is already a single actionable step and needs no breakdown,
respond with exactly: DELEGATED`

// maxSteps caps how many steps a single task may receive.
const maxSteps = 12

// StepGenerator is the Claude-backed smart todo generator.
type StepGenerator struct {
	client *Client
}

// NewStepGenerator creates a StepGenerator over an API client.
func NewStepGenerator(client *Client) *StepGenerator {
	return &StepGenerator{client: client}
}

// Compile-time verification that StepGenerator satisfies the contract.
var _ todogen.SmartGenerator = (*StepGenerator)(nil)

// Generate asks Claude to decompose the description into steps.
func (g *StepGenerator) Generate(ctx context.Context, description string) (todogen.Result, error) {
	resp, err := g.client.sdk().Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.client.Model(),
		MaxTokens: 2048,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(fmt.Sprintf(stepPrompt, description))),
		},
	})
	if err != nil {
		return todogen.Result{}, fmt.Errorf("API call failed: %w", err)
	}

	g.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	return ParseSteps(text.String())
}

// ParseSteps parses a model response into a generation result. The
// response is either the DELEGATED sentinel or a JSON array of step
// strings, possibly surrounded by prose.
func ParseSteps(response string) (todogen.Result, error) {
	trimmed := strings.TrimSpace(response)
	if strings.EqualFold(trimmed, "DELEGATED") {
		return todogen.Result{Delegated: true}, nil
	}

	jsonStart := strings.Index(trimmed, "[")
	jsonEnd := strings.LastIndex(trimmed, "]")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		return todogen.Result{}, fmt.Errorf("no JSON array found in response (%d chars)", len(trimmed))
	}

	var steps []string
	if err := json.Unmarshal([]byte(trimmed[jsonStart:jsonEnd+1]), &steps); err != nil {
		return todogen.Result{}, fmt.Errorf("unmarshal steps: %w", err)
	}

	cleaned := make([]string, 0, len(steps))
	for _, s := range steps {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		cleaned = append(cleaned, s)
		if len(cleaned) == maxSteps {
			break
		}
	}
	if len(cleaned) == 0 {
		return todogen.Result{}, fmt.Errorf("empty step list returned")
	}

	return todogen.Result{Steps: cleaned}, nil
}
