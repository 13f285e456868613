package businessflow

import (
	"testing"

	"github.com/adgenius-ai/adgenius/models"
	"github.com/stretchr/testify/assert"
)

func TestBucketPerformance(t *testing.T) {
	assert.Equal(t, PerformanceExcellent, BucketPerformance(3.5))
	assert.Equal(t, PerformanceExcellent, BucketPerformance(3.0))
	assert.Equal(t, PerformanceGood, BucketPerformance(2.1))
	assert.Equal(t, PerformanceGood, BucketPerformance(2.0))
	assert.Equal(t, PerformanceAverage, BucketPerformance(1.0))
	assert.Equal(t, PerformancePoor, BucketPerformance(0.4))
	assert.Equal(t, PerformancePoor, BucketPerformance(0))
}

func TestComputeROI(t *testing.T) {
	assert.Equal(t, "0%", ComputeROI(0, 500))
	assert.Equal(t, "+50%", ComputeROI(100, 150))
	assert.Equal(t, "-60%", ComputeROI(100, 40))
	assert.Equal(t, "+100%", ComputeROI(100, 200))
	assert.Equal(t, "-100%", ComputeROI(100, 0))
}

func TestComputeROAS(t *testing.T) {
	assert.Equal(t, "0.00x", ComputeROAS(0, 500))
	assert.Equal(t, "2.50x", ComputeROAS(100, 250))
	assert.Equal(t, "0.40x", ComputeROAS(100, 40))
}

func TestROASValue(t *testing.T) {
	assert.Equal(t, 0.0, ROASValue(0, 500))
	assert.InDelta(t, 2.5, ROASValue(100, 250), 0.0001)
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$0.00", FormatCurrency(0, "USD"))
	assert.Equal(t, "$999.50", FormatCurrency(999.5, "USD"))
	assert.Equal(t, "$1,000", FormatCurrency(1000, "USD"))
	assert.Equal(t, "$1,234,567", FormatCurrency(1234567, "USD"))

	// Unknown currencies fall back to the dollar format
	assert.Equal(t, "$12.34", FormatCurrency(12.34, "EUR"))

	assert.Equal(t, "₹500.00", FormatCurrency(500, "INR"))
	assert.Equal(t, "₹1.50K", FormatCurrency(1500, "INR"))
	assert.Equal(t, "₹2.50L", FormatCurrency(250000, "INR"))
	assert.Equal(t, "₹2.50Cr", FormatCurrency(25000000, "INR"))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "1,234,567", FormatNumber(1234567))
}

func TestAggregateInsights(t *testing.T) {
	records := []models.InsightRecord{
		{
			Spend:       "120.50",
			Impressions: "10000",
			Clicks:      "350",
			Actions: []models.InsightAction{
				{ActionType: "purchase", Value: "12"},
				{ActionType: "lead", Value: "5"},
				{ActionType: "link_click", Value: "300"},
			},
			ActionValues: []models.InsightAction{
				{ActionType: "purchase", Value: "480.00"},
				{ActionType: "lead", Value: "50.00"},
			},
		},
		{
			Spend:       "79.50",
			Impressions: "4000",
			Clicks:      "150.0", // decimal counters come back from Graph too
			Actions: []models.InsightAction{
				{ActionType: "offsite_conversion.fb_pixel_purchase", Value: "3"},
			},
			ActionValues: []models.InsightAction{
				{ActionType: "offsite_conversion.fb_pixel_purchase", Value: "120.00"},
			},
		},
		{
			Spend: "not-a-number", // unparseable values count as zero
		},
	}

	totals := AggregateInsights(records)

	assert.InDelta(t, 200.0, totals.Spend, 0.0001)
	assert.Equal(t, int64(14000), totals.Impressions)
	assert.Equal(t, int64(500), totals.Clicks)
	// purchases + conversions + leads, not link clicks
	assert.Equal(t, int64(20), totals.Conversions)
	// only purchase values count as revenue
	assert.InDelta(t, 600.0, totals.Revenue, 0.0001)
}

func TestCampaignRevenue(t *testing.T) {
	record := models.InsightRecord{
		ActionValues: []models.InsightAction{
			{ActionType: "purchase", Value: "300.00"},
			{ActionType: "lead", Value: "75.00"},
		},
	}
	assert.InDelta(t, 300.0, CampaignRevenue(record), 0.0001)
	assert.Equal(t, 0.0, CampaignRevenue(models.InsightRecord{}))
}

func TestActiveCampaignCount(t *testing.T) {
	campaigns := []models.Campaign{
		{ID: "1", Status: "ACTIVE"},
		{ID: "2", Status: "PAUSED"},
		{ID: "3", Status: "ACTIVE"},
		{ID: "4", Status: "ARCHIVED"},
	}
	assert.Equal(t, 2, ActiveCampaignCount(campaigns))
	assert.Equal(t, 0, ActiveCampaignCount(nil))
}
