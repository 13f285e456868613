package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/adgenius-ai/adgenius/config"
)

// ChatTurn is one message of an agent conversation.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "model"
	Content string `json:"content"`
}

// ToolDeclaration describes a callable function to the model.
type ToolDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// GenerateRequest is a single model invocation.
type GenerateRequest struct {
	SystemPrompt string
	Turns        []ChatTurn
	Tools        []ToolDeclaration
	// ToolResult feeds the outcome of the previous tool call back to the model.
	ToolResult *ToolResult
}

// ToolResult is the outcome of executing a requested tool call.
type ToolResult struct {
	Name     string `json:"name"`
	Response any    `json:"response"`
}

// GenerateResponse is the model's answer: either text or a tool call.
type GenerateResponse struct {
	Text     string
	ToolCall *ToolCall
}

// LLMClient generates agent responses
type LLMClient interface {
	GenerateContent(ctx context.Context, request *GenerateRequest) (*GenerateResponse, error)
}

// GeminiClientImpl implements LLMClient against the Gemini REST API
type GeminiClientImpl struct {
	config *config.LLMConfig
	client *http.Client
}

// NewGeminiClient creates a new Gemini LLM client
func NewGeminiClient(cfg *config.LLMConfig) LLMClient {
	return &GeminiClientImpl{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Wire structures for the generateContent endpoint.
type geminiPart struct {
	Text             string          `json:"text,omitempty"`
	FunctionCall     *geminiFuncCall `json:"functionCall,omitempty"`
	FunctionResponse *geminiFuncResp `json:"functionResponse,omitempty"`
}

type geminiFuncCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type geminiFuncResp struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerateRequest struct {
	SystemInstruction *geminiContent     `json:"systemInstruction,omitempty"`
	Contents          []geminiContent    `json:"contents"`
	Tools             []geminiToolsBlock `json:"tools,omitempty"`
	GenerationConfig  *geminiGenConfig   `json:"generationConfig,omitempty"`
}

type geminiToolsBlock struct {
	FunctionDeclarations []ToolDeclaration `json:"functionDeclarations"`
}

type geminiGenConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateContent calls the model once and reports text or a tool call.
func (g *GeminiClientImpl) GenerateContent(ctx context.Context, request *GenerateRequest) (*GenerateResponse, error) {
	payload := geminiGenerateRequest{
		GenerationConfig: &geminiGenConfig{Temperature: g.config.Temperature},
	}

	if request.SystemPrompt != "" {
		payload.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: request.SystemPrompt}},
		}
	}

	for _, turn := range request.Turns {
		payload.Contents = append(payload.Contents, geminiContent{
			Role:  turn.Role,
			Parts: []geminiPart{{Text: turn.Content}},
		})
	}

	if request.ToolResult != nil {
		payload.Contents = append(payload.Contents, geminiContent{
			Role: "user",
			Parts: []geminiPart{{
				FunctionResponse: &geminiFuncResp{
					Name:     request.ToolResult.Name,
					Response: map[string]any{"result": request.ToolResult.Response},
				},
			}},
		})
	}

	if len(request.Tools) > 0 {
		payload.Tools = []geminiToolsBlock{{FunctionDeclarations: request.Tools}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal llm request: %w", err)
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		g.config.Model, g.config.APIKey,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call llm: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read llm response: %w", err)
	}

	var parsed geminiGenerateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode llm response: %w", err)
	}

	if parsed.Error != nil {
		return nil, fmt.Errorf("llm returned error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm returned status %d", resp.StatusCode)
	}
	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("llm returned no candidates")
	}

	result := &GenerateResponse{}
	for _, part := range parsed.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			result.ToolCall = &ToolCall{
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			}
			break
		}
		if part.Text != "" {
			result.Text += part.Text
		}
	}

	return result, nil
}

// MockLLMClient is a mock implementation for testing
type MockLLMClient struct {
	mu sync.Mutex

	Responses []*GenerateResponse
	Err       error

	Requests []*GenerateRequest
}

// NewMockLLMClient creates a mock LLM client for testing
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{}
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, request *GenerateRequest) (*GenerateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, request)

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return &GenerateResponse{Text: "ok"}, nil
	}
	resp := m.Responses[0]
	m.Responses = m.Responses[1:]
	return resp, nil
}
