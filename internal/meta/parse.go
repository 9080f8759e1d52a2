package meta

import (
	"strconv"

	"github.com/radiusdt/metasync/internal/models"
)

// Action types counted as purchases and leads. Generic types are preferred;
// the pixel and page specific ones are used only when the tenant has that
// asset configured and the generic type is absent.
const (
	actionPurchase      = "purchase"
	actionPixelPurchase = "offsite_conversion.fb_pixel_purchase"
	actionLead          = "lead"
	actionPageLead      = "onsite_conversion.lead_grouped"
)

type insightsResponse struct {
	Data   []insightsRow `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

type insightsRow struct {
	Spend        string        `json:"spend"`
	Clicks       string        `json:"clicks"`
	Impressions  string        `json:"impressions"`
	Actions      []actionValue `json:"actions"`
	ActionValues []actionValue `json:"action_values"`
	DateStart    string        `json:"date_start"`
	DateStop     string        `json:"date_stop"`
}

type actionValue struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

type errorResponse struct {
	Error *struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		Subcode   int    `json:"error_subcode"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// toMetrics converts one insights row into raw counters with derived ratios.
func (r insightsRow) toMetrics(req FetchRequest) models.DayMetrics {
	m := models.DayMetrics{
		Spend:       parseFloat(r.Spend),
		Clicks:      int64(parseFloat(r.Clicks)),
		Impressions: int64(parseFloat(r.Impressions)),
	}

	counts := indexActions(r.Actions)
	values := indexActions(r.ActionValues)

	purchaseType := pickAction(counts, actionPurchase, actionPixelPurchase, req.PixelID != "")
	if purchaseType != "" {
		m.Purchases = int64(counts[purchaseType])
	}
	valueType := pickAction(values, actionPurchase, actionPixelPurchase, req.PixelID != "")
	if valueType != "" {
		m.PurchaseValue = values[valueType]
	}
	if leadType := pickAction(counts, actionLead, actionPageLead, req.PageID != ""); leadType != "" {
		m.TotalLeads = int64(counts[leadType])
	}

	return m.Derive()
}

func indexActions(actions []actionValue) map[string]float64 {
	out := make(map[string]float64, len(actions))
	for _, a := range actions {
		out[a.ActionType] += parseFloat(a.Value)
	}
	return out
}

func pickAction(values map[string]float64, generic, specific string, specificAllowed bool) string {
	if _, ok := values[generic]; ok {
		return generic
	}
	if specificAllowed {
		if _, ok := values[specific]; ok {
			return specific
		}
	}
	return ""
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
