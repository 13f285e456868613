package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/adgenius-ai/adgenius/models"
)

// adsToolDeclarations is what the model sees of the gateway surface.
var adsToolDeclarations = []ToolDeclaration{
	{
		Name:        "list_ad_accounts",
		Description: "List the Meta ad accounts visible to the connected user",
	},
	{
		Name:        "get_campaigns",
		Description: "List the campaigns of an ad account",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"account_id": map[string]any{"type": "string"},
			},
			"required": []string{"account_id"},
		},
	},
	{
		Name:        "get_account_insights",
		Description: "Fetch account-level performance insights for a date preset such as last_30d",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"account_id":  map[string]any{"type": "string"},
				"date_preset": map[string]any{"type": "string"},
			},
			"required": []string{"account_id"},
		},
	},
	{
		Name:        "get_campaign_insights",
		Description: "Fetch campaign-level performance insights for a date preset such as last_30d",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"account_id":  map[string]any{"type": "string"},
				"date_preset": map[string]any{"type": "string"},
			},
			"required": []string{"account_id"},
		},
	},
	{
		Name:        "get_campaign_budgets",
		Description: "Fetch the configured daily and lifetime budgets of every campaign in an ad account",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"account_id": map[string]any{"type": "string"},
			},
			"required": []string{"account_id"},
		},
	},
}

// AgentResult is the outcome of one agent run.
type AgentResult struct {
	Reply string
	// Tool, Args, and Result describe the last tool call of the run, if any.
	Tool   *string
	Args   models.JSONMap
	Result any
}

// AdsAgent runs a bounded tool-call loop against the LLM for one user. The
// agent is bound to a single access token; a new token means a new agent.
type AdsAgent struct {
	llm         LLMClient
	tools       AdsToolClient
	accessToken string
	maxSteps    int

	mu     sync.Mutex
	memory []ChatTurn
}

// NewAdsAgent creates an agent bound to the given access token.
func NewAdsAgent(llm LLMClient, tools AdsToolClient, accessToken string, maxSteps int) *AdsAgent {
	return &AdsAgent{
		llm:         llm,
		tools:       tools,
		accessToken: accessToken,
		maxSteps:    maxSteps,
	}
}

// AccessToken reports the token this agent was built with.
func (a *AdsAgent) AccessToken() string {
	return a.accessToken
}

// LoadHistory replaces the agent's memory with the given turns.
func (a *AdsAgent) LoadHistory(turns []ChatTurn) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.memory = append([]ChatTurn(nil), turns...)
}

// Run sends one prompt through the tool-call loop and returns the reply.
func (a *AdsAgent) Run(ctx context.Context, systemPrompt, prompt string) (*AgentResult, error) {
	a.mu.Lock()
	turns := append(append([]ChatTurn(nil), a.memory...), ChatTurn{Role: "user", Content: prompt})
	a.mu.Unlock()

	result := &AgentResult{}
	var toolResult *ToolResult

	for step := 0; step < a.maxSteps; step++ {
		resp, err := a.llm.GenerateContent(ctx, &GenerateRequest{
			SystemPrompt: systemPrompt,
			Turns:        turns,
			Tools:        adsToolDeclarations,
			ToolResult:   toolResult,
		})
		if err != nil {
			return nil, fmt.Errorf("agent step %d failed: %w", step+1, err)
		}

		if resp.ToolCall == nil {
			result.Reply = resp.Text

			a.mu.Lock()
			a.memory = append(a.memory,
				ChatTurn{Role: "user", Content: prompt},
				ChatTurn{Role: "model", Content: resp.Text},
			)
			a.mu.Unlock()

			return result, nil
		}

		output, err := a.dispatchTool(ctx, resp.ToolCall)
		if err != nil {
			// Hand the failure back to the model instead of aborting the run.
			output = map[string]any{"error": err.Error()}
		}

		toolName := resp.ToolCall.Name
		result.Tool = &toolName
		result.Args = models.JSONMap(resp.ToolCall.Args)
		result.Result = output

		toolResult = &ToolResult{Name: toolName, Response: output}
	}

	return nil, fmt.Errorf("agent exceeded %d steps without a final reply", a.maxSteps)
}

func (a *AdsAgent) dispatchTool(ctx context.Context, call *ToolCall) (any, error) {
	accountID, _ := call.Args["account_id"].(string)
	datePreset, _ := call.Args["date_preset"].(string)
	if datePreset == "" {
		datePreset = "last_30d"
	}

	switch call.Name {
	case "list_ad_accounts":
		return a.tools.ListAdAccounts(ctx, a.accessToken)
	case "get_campaigns":
		return a.tools.ListCampaigns(ctx, a.accessToken, accountID)
	case "get_account_insights":
		return a.tools.AccountInsights(ctx, a.accessToken, accountID, datePreset)
	case "get_campaign_insights":
		return a.tools.CampaignInsights(ctx, a.accessToken, accountID, datePreset)
	case "get_campaign_budgets":
		return a.tools.CampaignBudgets(ctx, a.accessToken, accountID)
	default:
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}
}
