package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/smilemakc/mbflow/pkg/models"
)

// AnthropicProvider implements the LLM provider for Anthropic Claude models via
// github.com/anthropics/anthropic-sdk-go, grounded on dshills-langgraph-go's
// anthropic.ChatModel adapter (anthropicsdk.NewClient, MessageNewParams,
// client.Messages.New, system-prompt extraction, tool-call translation).
type AnthropicProvider struct {
	client anthropicsdk.Client
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, baseURL string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required for Anthropic provider")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &AnthropicProvider{client: anthropicsdk.NewClient(opts...)}, nil
}

// Execute executes an LLM request via the Anthropic Messages API.
func (p *AnthropicProvider) Execute(ctx context.Context, req *models.LLMRequest) (*models.LLMResponse, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.Model),
		Messages:  p.buildMessages(req),
		MaxTokens: maxTokens,
	}

	instruction := req.Instruction
	if instruction == "" {
		instruction = req.Instructions
	}
	if instruction != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: instruction}}
	}

	if req.Temperature > 0 {
		params.Temperature = anthropicsdk.Float(req.Temperature)
	}
	if req.TopP > 0 {
		params.TopP = anthropicsdk.Float(req.TopP)
	}
	if len(req.StopSequences) > 0 {
		params.StopSequences = req.StopSequences
	}
	if len(req.Tools) > 0 {
		params.Tools = p.buildTools(req.Tools)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.translateError(err)
	}

	return p.convertResponse(resp), nil
}

func (p *AnthropicProvider) buildMessages(req *models.LLMRequest) []anthropicsdk.MessageParam {
	prompt := req.Prompt
	if prompt == "" {
		if s, ok := req.Input.(string); ok {
			prompt = s
		}
	}
	if prompt == "" {
		return nil
	}
	return []anthropicsdk.MessageParam{anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt))}
}

func (p *AnthropicProvider) buildTools(tools []models.LLMTool) []anthropicsdk.ToolUnionParam {
	out := make([]anthropicsdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var properties any
		var required []string
		if props, ok := t.Function.Parameters["properties"]; ok {
			properties = props
		}
		if req, ok := t.Function.Parameters["required"].([]string); ok {
			required = req
		} else if req, ok := t.Function.Parameters["required"].([]interface{}); ok {
			for _, v := range req {
				if s, ok := v.(string); ok {
					required = append(required, s)
				}
			}
		}

		out = append(out, anthropicsdk.ToolUnionParam{
			OfTool: &anthropicsdk.ToolParam{
				Name:        t.Function.Name,
				Description: anthropicsdk.String(t.Function.Description),
				InputSchema: anthropicsdk.ToolInputSchemaParam{
					Properties: properties,
					Required:   required,
				},
			},
		})
	}
	return out
}

func (p *AnthropicProvider) translateError(err error) error {
	return &models.LLMError{
		Provider: models.LLMProviderAnthropic,
		Message:  err.Error(),
	}
}

func (p *AnthropicProvider) convertResponse(resp *anthropicsdk.Message) *models.LLMResponse {
	response := &models.LLMResponse{
		ResponseID: resp.ID,
		Model:      string(resp.Model),
		CreatedAt:  time.Now(),
		Usage: models.LLMUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
		FinishReason: string(resp.StopReason),
	}

	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropicsdk.TextBlock:
			response.Content += b.Text
		case anthropicsdk.ToolUseBlock:
			argsJSON, err := json.Marshal(b.Input)
			if err != nil {
				argsJSON = []byte("{}")
			}
			response.ToolCalls = append(response.ToolCalls, models.LLMToolCall{
				ID:   b.ID,
				Type: "function",
				Function: models.LLMFunctionCall{
					Name:      b.Name,
					Arguments: string(argsJSON),
				},
			})
		}
	}

	if len(response.ToolCalls) > 0 {
		response.FinishReason = "tool_calls"
	}

	return response
}
