package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/smilemakc/mbflow/pkg/models"
)

// GeminiProvider implements the LLM provider for Google Gemini using the
// official github.com/google/generative-ai-go/genai client, grounded on
// dshills-langgraph-go's google.ChatModel adapter (genai.NewClient,
// GenerativeModel, GenerateContent, function-declaration tools).
type GeminiProvider struct {
	apiKey string
}

// NewGeminiProvider creates a new Gemini provider with the given configuration.
// baseURL is accepted for config-shape compatibility with the other
// providers but the genai client always talks to Google's default endpoint.
func NewGeminiProvider(apiKey, baseURL string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required for Gemini provider")
	}
	return &GeminiProvider{apiKey: apiKey}, nil
}

// Execute executes an LLM request using Gemini.
func (p *GeminiProvider) Execute(ctx context.Context, req *models.LLMRequest) (*models.LLMResponse, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(req.Model)

	if req.Instruction != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.Instruction)}}
	}

	genConfig := &genai.GenerationConfig{}
	hasConfig := false
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		genConfig.Temperature = &t
		hasConfig = true
	}
	if req.TopP > 0 {
		tp := float32(req.TopP)
		genConfig.TopP = &tp
		hasConfig = true
	}
	if req.MaxTokens > 0 {
		mt := int32(req.MaxTokens)
		genConfig.MaxOutputTokens = &mt
		hasConfig = true
	}
	if len(req.StopSequences) > 0 {
		genConfig.StopSequences = req.StopSequences
		hasConfig = true
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_object" {
		genConfig.ResponseMIMEType = "application/json"
		hasConfig = true
	}
	if hasConfig {
		model.GenerationConfig = *genConfig
	}

	if len(req.Tools) > 0 {
		model.Tools = convertGeminiTools(req.Tools)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, p.translateError(err)
	}

	return p.convertResponse(resp, req), nil
}

func convertGeminiTools(tools []models.LLMTool) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, len(tools))
	for i, tool := range tools {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			Parameters:  convertSchemaToGenai(tool.Function.Parameters),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// convertSchemaToGenai converts a node catalog's JSON-schema-shaped
// parameters map into a genai.Schema, handling the object/properties/
// required/array shapes paramSpecsToJSONSchema (internal/application/agent)
// and the builtin http/transform nodes all produce.
func convertSchemaToGenai(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return nil
	}

	result := &genai.Schema{Type: genai.TypeObject}
	if typeStr, ok := schema["type"].(string); ok {
		result.Type = geminiSchemaType(typeStr)
	}
	if desc, ok := schema["description"].(string); ok {
		result.Description = desc
	}

	if props, ok := schema["properties"].(map[string]interface{}); ok {
		properties := make(map[string]*genai.Schema, len(props))
		for key, val := range props {
			if propMap, ok := val.(map[string]interface{}); ok {
				properties[key] = convertSchemaToGenai(propMap)
			}
		}
		result.Properties = properties
	}

	if required, ok := schema["required"].([]string); ok {
		result.Required = required
	} else if required, ok := schema["required"].([]interface{}); ok {
		requiredStrs := make([]string, 0, len(required))
		for _, v := range required {
			if s, ok := v.(string); ok {
				requiredStrs = append(requiredStrs, s)
			}
		}
		result.Required = requiredStrs
	}

	return result
}

func geminiSchemaType(typeStr string) genai.Type {
	switch typeStr {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean", "bool":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

func (p *GeminiProvider) translateError(err error) error {
	return &models.LLMError{
		Provider: models.LLMProviderGemini,
		Message:  err.Error(),
	}
}

// convertResponse converts Gemini API response to our model.
func (p *GeminiProvider) convertResponse(resp *genai.GenerateContentResponse, req *models.LLMRequest) *models.LLMResponse {
	response := &models.LLMResponse{
		Model:     req.Model,
		CreatedAt: time.Now(),
	}
	if resp.UsageMetadata != nil {
		response.Usage = models.LLMUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	if len(resp.Candidates) == 0 {
		response.FinishReason = "error"
		return response
	}

	candidate := resp.Candidates[0]
	response.FinishReason = p.normalizeFinishReason(candidate.FinishReason)

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			switch v := part.(type) {
			case genai.Text:
				response.Content += string(v)
			case genai.FunctionCall:
				argsJSON, err := json.Marshal(v.Args)
				if err != nil {
					argsJSON = []byte("{}")
				}
				response.ToolCalls = append(response.ToolCalls, models.LLMToolCall{
					ID:   v.Name,
					Type: "function",
					Function: models.LLMFunctionCall{
						Name:      v.Name,
						Arguments: string(argsJSON),
					},
				})
			}
		}
	}

	if len(response.ToolCalls) > 0 {
		response.FinishReason = "tool_calls"
	}

	return response
}

func (p *GeminiProvider) normalizeFinishReason(reason genai.FinishReason) string {
	switch reason {
	case genai.FinishReasonStop:
		return "stop"
	case genai.FinishReasonMaxTokens:
		return "length"
	case genai.FinishReasonSafety:
		return "content_filter"
	case genai.FinishReasonUnspecified:
		return ""
	default:
		return reason.String()
	}
}
