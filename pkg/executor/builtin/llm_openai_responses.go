package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/smilemakc/mbflow/pkg/models"
)

// OpenAIResponsesProvider implements the LLM provider for OpenAI models via
// github.com/sashabaranov/go-openai's Chat Completions client - the same SDK
// and call shape the sibling smilemakc-mbflow node_executors.go uses
// (openai.NewClient, openai.ChatCompletionRequest,
// client.CreateChatCompletion), re-pointed at the engine's LLMRequest/
// LLMResponse contract and extended with tool-call translation the way
// goadesign-goa-ai's openai adapter does it.
//
// Reasoning effort, hosted tools, background processing, and response
// chaining are Responses-API-only concepts the Chat Completions endpoint has
// no equivalent for; Execute rejects a request that sets any of them rather
// than silently dropping the field.
type OpenAIResponsesProvider struct {
	client *openai.Client
}

// NewOpenAIResponsesProvider creates a new OpenAI provider.
func NewOpenAIResponsesProvider(apiKey, baseURL, orgID string) (*OpenAIResponsesProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required for OpenAI provider")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if orgID != "" {
		cfg.OrgID = orgID
	}

	return &OpenAIResponsesProvider{client: openai.NewClientWithConfig(cfg)}, nil
}

// OpenAIProvider is the plain Chat Completions provider (models.LLMProviderOpenAI).
// It is the same go-openai-backed implementation as OpenAIResponsesProvider;
// the two LLMProvider values exist because the Responses API historically
// also supported reasoning/hosted-tool fields the plain Chat Completions
// provider never needed to, but both now run through the same client.
type OpenAIProvider = OpenAIResponsesProvider

// NewOpenAIProvider creates a new OpenAI Chat Completions provider.
func NewOpenAIProvider(apiKey, baseURL, orgID string) (*OpenAIProvider, error) {
	return NewOpenAIResponsesProvider(apiKey, baseURL, orgID)
}

// Execute executes an LLM request via the OpenAI Chat Completions API.
func (p *OpenAIResponsesProvider) Execute(ctx context.Context, req *models.LLMRequest) (*models.LLMResponse, error) {
	if req.Background || req.Reasoning != nil || len(req.HostedTools) > 0 || req.PreviousResponseID != "" {
		return nil, fmt.Errorf("openai: background/reasoning/hosted_tools/previous_response_id require the Responses API, unsupported by this provider")
	}

	ccReq, err := p.buildRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(ctx, ccReq)
	if err != nil {
		return nil, p.translateError(err)
	}

	return p.convertResponse(&resp), nil
}

func (p *OpenAIResponsesProvider) buildRequest(req *models.LLMRequest) (openai.ChatCompletionRequest, error) {
	var messages []openai.ChatCompletionMessage

	instruction := req.Instruction
	if instruction == "" {
		instruction = req.Instructions
	}
	if instruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: instruction,
		})
	}

	prompt := req.Prompt
	if prompt == "" {
		if s, ok := req.Input.(string); ok {
			prompt = s
		}
	}
	if prompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		})
	}

	ccReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		TopP:        float32(req.TopP),
	}
	if len(req.StopSequences) > 0 {
		ccReq.Stop = req.StopSequences
	}

	if len(req.Tools) > 0 {
		tools, err := encodeOpenAITools(req.Tools)
		if err != nil {
			return openai.ChatCompletionRequest{}, err
		}
		ccReq.Tools = tools
	}

	if req.ResponseFormat != nil {
		format, err := p.buildResponseFormat(req.ResponseFormat)
		if err != nil {
			return openai.ChatCompletionRequest{}, err
		}
		ccReq.ResponseFormat = format
	}

	return ccReq, nil
}

func encodeOpenAITools(tools []models.LLMTool) ([]openai.Tool, error) {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		params, err := json.Marshal(t.Function.Parameters)
		if err != nil {
			return nil, fmt.Errorf("marshal tool %s parameters: %w", t.Function.Name, err)
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  json.RawMessage(params),
			},
		})
	}
	return out, nil
}

func (p *OpenAIResponsesProvider) buildResponseFormat(format *models.LLMResponseFormat) (*openai.ChatCompletionResponseFormat, error) {
	switch format.Type {
	case "json_object":
		return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}, nil
	case "json_schema":
		if format.JSONSchema == nil {
			return nil, fmt.Errorf("response_format json_schema requires json_schema")
		}
		return &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        format.JSONSchema.Name,
				Description: format.JSONSchema.Description,
				Schema:      jsonSchema(format.JSONSchema.Schema),
				Strict:      format.JSONSchema.Strict,
			},
		}, nil
	default:
		return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeText}, nil
	}
}

// jsonSchema adapts a decoded JSON-schema map to go-openai's
// jsonschema.Definition-shaped MarshalJSON expectation without pulling in a
// second schema package: the SDK only needs the raw object back out.
type jsonSchema map[string]interface{}

func (s jsonSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(s))
}

func (p *OpenAIResponsesProvider) translateError(err error) error {
	var apiErr *openai.APIError
	if ok := asAPIError(err, &apiErr); ok {
		return &models.LLMError{
			Provider: models.LLMProviderOpenAIResponses,
			Code:     fmt.Sprintf("%v", apiErr.Code),
			Message:  apiErr.Message,
			Type:     apiErr.Type,
			Param:    derefString(apiErr.Param),
		}
	}
	return fmt.Errorf("openai chat completion: %w", err)
}

func asAPIError(err error, target **openai.APIError) bool {
	apiErr, ok := err.(*openai.APIError)
	if !ok {
		return false
	}
	*target = apiErr
	return true
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (p *OpenAIResponsesProvider) convertResponse(resp *openai.ChatCompletionResponse) *models.LLMResponse {
	response := &models.LLMResponse{
		ResponseID: resp.ID,
		Model:      resp.Model,
		CreatedAt:  time.Unix(resp.Created, 0),
		Usage: models.LLMUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	if len(resp.Choices) == 0 {
		return response
	}

	choice := resp.Choices[0]
	response.Content = choice.Message.Content
	response.FinishReason = string(choice.FinishReason)

	for _, call := range choice.Message.ToolCalls {
		response.ToolCalls = append(response.ToolCalls, models.LLMToolCall{
			ID:   call.ID,
			Type: "function",
			Function: models.LLMFunctionCall{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		})
	}
	if len(response.ToolCalls) > 0 && response.FinishReason == "" {
		response.FinishReason = "tool_calls"
	}

	return response
}
