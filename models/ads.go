package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// AdAccount is an ad account as reported by the Meta Graph API. IDs come in
// two spellings: ID carries the "act_" form and AccountID the bare numeric one.
type AdAccount struct {
	ID            string `json:"id"`
	AccountID     string `json:"account_id"`
	Name          string `json:"name"`
	AccountStatus int    `json:"account_status"`
	Currency      string `json:"currency"`
}

// Campaign is a campaign row fetched from the Graph API.
type Campaign struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Status         string  `json:"status"`
	Objective      string  `json:"objective"`
	DailyBudget    *string `json:"daily_budget,omitempty"`
	LifetimeBudget *string `json:"lifetime_budget,omitempty"`
	CreatedTime    string  `json:"created_time,omitempty"`
}

// InsightAction is one entry of the actions / action_values breakdowns.
type InsightAction struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

// InsightRecord is a single insights row, either account- or campaign-level.
type InsightRecord struct {
	CampaignID   string          `json:"campaign_id,omitempty"`
	CampaignName string          `json:"campaign_name,omitempty"`
	Spend        string          `json:"spend"`
	Impressions  string          `json:"impressions"`
	Clicks       string          `json:"clicks"`
	CTR          string          `json:"ctr"`
	CPC          string          `json:"cpc"`
	Actions      []InsightAction `json:"actions,omitempty"`
	ActionValues []InsightAction `json:"action_values,omitempty"`
	DateStart    string          `json:"date_start,omitempty"`
	DateStop     string          `json:"date_stop,omitempty"`
}

// CampaignBudget pairs a campaign with its configured budgets.
type CampaignBudget struct {
	CampaignID     string  `json:"campaign_id"`
	CampaignName   string  `json:"campaign_name"`
	DailyBudget    *string `json:"daily_budget,omitempty"`
	LifetimeBudget *string `json:"lifetime_budget,omitempty"`
}

// AdAccountList stores the user's ad accounts as a JSON column.
type AdAccountList []AdAccount

func (l AdAccountList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ad accounts: %w", err)
	}
	return string(b), nil
}

func (l *AdAccountList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for ad account list: %T", value)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, l)
}

// JSONMap stores loosely structured metadata as a JSON column.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(b), nil
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for metadata: %T", value)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, m)
}
