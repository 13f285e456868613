package businessflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/adgenius-ai/adgenius/models"
)

// Performance tier names, ordered best to worst.
const (
	PerformanceExcellent = "excellent"
	PerformanceGood      = "good"
	PerformanceAverage   = "average"
	PerformancePoor      = "poor"
)

// roasTiers maps a minimum return-on-ad-spend to a tier. Boundaries are
// inclusive: exactly 1.0x is average, exactly 2.0x is good.
var roasTiers = []struct {
	min  float64
	name string
}{
	{3.0, PerformanceExcellent},
	{2.0, PerformanceGood},
	{1.0, PerformanceAverage},
}

// BucketPerformance assigns a performance tier to a ROAS value.
func BucketPerformance(roas float64) string {
	for _, tier := range roasTiers {
		if roas >= tier.min {
			return tier.name
		}
	}
	return PerformancePoor
}

// ComputeROI renders return on investment as a signed percentage string.
// Zero spend always reads "0%".
func ComputeROI(spend, revenue float64) string {
	if spend == 0 {
		return "0%"
	}
	roi := ((revenue - spend) / spend) * 100
	sign := ""
	if roi >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.0f%%", sign, roi)
}

// ComputeROAS renders return on ad spend as a multiplier string.
// Zero spend always reads "0.00x".
func ComputeROAS(spend, revenue float64) string {
	if spend <= 0 {
		return "0.00x"
	}
	return fmt.Sprintf("%.2fx", revenue/spend)
}

// ROASValue computes the raw ROAS ratio, zero when there is no spend.
func ROASValue(spend, revenue float64) float64 {
	if spend <= 0 {
		return 0
	}
	return revenue / spend
}

// FormatCurrency renders an amount in the account currency. Dollar amounts
// keep cents below $1,000; rupee amounts use the Indian abbreviated units.
func FormatCurrency(amount float64, currency string) string {
	if strings.EqualFold(currency, "INR") {
		return formatINR(amount)
	}
	if amount >= 1000 {
		return "$" + groupThousands(fmt.Sprintf("%.0f", amount))
	}
	return "$" + groupThousands(fmt.Sprintf("%.2f", amount))
}

func formatINR(amount float64) string {
	switch {
	case amount >= 1e7:
		return fmt.Sprintf("₹%.2fCr", amount/1e7)
	case amount >= 1e5:
		return fmt.Sprintf("₹%.2fL", amount/1e5)
	case amount >= 1e3:
		return fmt.Sprintf("₹%.2fK", amount/1e3)
	default:
		return fmt.Sprintf("₹%.2f", amount)
	}
}

// FormatNumber renders a count with thousands separators.
func FormatNumber(n float64) string {
	return groupThousands(strconv.FormatInt(int64(n), 10))
}

// groupThousands inserts commas into the integer part of a decimal string.
func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart = s[:idx]
		fracPart = s[idx:]
	}

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	out := b.String() + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

// InsightTotals is the aggregate of a set of insight records.
type InsightTotals struct {
	Spend       float64
	Impressions int64
	Clicks      int64
	Conversions int64
	Revenue     float64
}

// conversionActionTypes marks the Graph action types that count as a
// conversion: purchases, explicit conversions, and leads.
func isConversionAction(actionType string) bool {
	lower := strings.ToLower(actionType)
	return strings.Contains(lower, "purchase") ||
		strings.Contains(lower, "conversion") ||
		strings.Contains(lower, "lead")
}

// isRevenueAction marks the action types whose values count as revenue.
// Only purchase values do; lead and conversion counts carry no monetary value.
func isRevenueAction(actionType string) bool {
	return strings.Contains(strings.ToLower(actionType), "purchase")
}

// AggregateInsights folds insight records into totals. Graph reports every
// numeric field as a string; unparseable values count as zero.
func AggregateInsights(records []models.InsightRecord) InsightTotals {
	var totals InsightTotals

	for _, record := range records {
		totals.Spend += parseFloat(record.Spend)
		totals.Impressions += parseInt(record.Impressions)
		totals.Clicks += parseInt(record.Clicks)

		for _, action := range record.Actions {
			if isConversionAction(action.ActionType) {
				totals.Conversions += parseInt(action.Value)
			}
		}
		for _, actionValue := range record.ActionValues {
			if isRevenueAction(actionValue.ActionType) {
				totals.Revenue += parseFloat(actionValue.Value)
			}
		}
	}

	return totals
}

// CampaignRevenue extracts the purchase revenue of a single insight record.
func CampaignRevenue(record models.InsightRecord) float64 {
	var revenue float64
	for _, actionValue := range record.ActionValues {
		if isRevenueAction(actionValue.ActionType) {
			revenue += parseFloat(actionValue.Value)
		}
	}
	return revenue
}

// ActiveCampaignCount counts campaigns whose status is ACTIVE.
func ActiveCampaignCount(campaigns []models.Campaign) int {
	count := 0
	for _, c := range campaigns {
		if c.Status == "ACTIVE" {
			count++
		}
	}
	return count
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int64 {
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	// Some counters come back as decimals.
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(v)
	}
	return 0
}
