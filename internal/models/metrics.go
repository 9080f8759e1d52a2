package models

// DayMetrics is the fixed-shape metrics record stored per tenant and day.
// Raw counters are the ground truth; the remaining fields are derived
// ratios kept for fast reads and recomputed by Derive.
type DayMetrics struct {
	// Raw counters
	Spend         float64 `json:"spend"`
	Clicks        int64   `json:"clicks"`
	Impressions   int64   `json:"impressions"`
	Purchases     int64   `json:"purchases"`
	PurchaseValue float64 `json:"purchaseValue"`
	TotalLeads    int64   `json:"totalLeads"`

	// Derived ratios
	CTR            float64 `json:"ctr"`            // Click-through rate (%)
	CPC            float64 `json:"cpc"`            // Cost per click
	CPM            float64 `json:"cpm"`            // Cost per mille
	ROAS           float64 `json:"ROAS"`           // Return on ad spend
	RPV            float64 `json:"RPV"`            // Revenue per visit (click)
	ConversionRate float64 `json:"conversionRate"` // Leads per click (%)
	CPL            float64 `json:"CPL"`            // Cost per lead
	MER            float64 `json:"MER"`            // Marketing efficiency ratio
	CPP            float64 `json:"CPP"`            // Cost per purchase
	PCR            float64 `json:"PCR"`            // Purchases per click (%)
	RPI            float64 `json:"RPI"`            // Revenue per impression
	RPL            float64 `json:"RPL"`            // Revenue per lead
	CPML           float64 `json:"CPML"`           // Cost per thousand leads
}

// Counters returns a copy holding only the raw counters.
func (m DayMetrics) Counters() DayMetrics {
	return DayMetrics{
		Spend:         m.Spend,
		Clicks:        m.Clicks,
		Impressions:   m.Impressions,
		Purchases:     m.Purchases,
		PurchaseValue: m.PurchaseValue,
		TotalLeads:    m.TotalLeads,
	}
}

// Add returns the elementwise sum of the raw counters of m and o.
// Derived fields of the result are zero; call Derive on it.
func (m DayMetrics) Add(o DayMetrics) DayMetrics {
	return DayMetrics{
		Spend:         m.Spend + o.Spend,
		Clicks:        m.Clicks + o.Clicks,
		Impressions:   m.Impressions + o.Impressions,
		Purchases:     m.Purchases + o.Purchases,
		PurchaseValue: m.PurchaseValue + o.PurchaseValue,
		TotalLeads:    m.TotalLeads + o.TotalLeads,
	}
}

// Derive returns a copy of m whose ratio fields are recomputed from its raw
// counters. A zero denominator yields a zero ratio.
func (m DayMetrics) Derive() DayMetrics {
	out := m.Counters()

	clicks := float64(m.Clicks)
	imps := float64(m.Impressions)
	purchases := float64(m.Purchases)
	leads := float64(m.TotalLeads)

	if m.Clicks > 0 && m.Impressions > 0 {
		out.CTR = clicks / imps * 100
	}
	if m.Clicks > 0 {
		out.CPC = m.Spend / clicks
		out.RPV = m.PurchaseValue / clicks
		out.ConversionRate = leads / clicks * 100
		out.PCR = purchases / clicks * 100
	}
	if m.Impressions > 0 {
		out.CPM = m.Spend / imps * 1000
		out.RPI = m.PurchaseValue / imps
	}
	if m.Spend > 0 {
		out.ROAS = m.PurchaseValue / m.Spend
		out.MER = out.ROAS
	}
	if m.TotalLeads > 0 {
		out.CPL = m.Spend / leads
		out.RPL = m.PurchaseValue / leads
		out.CPML = m.Spend / (leads / 1000)
	}
	if m.Purchases > 0 {
		out.CPP = m.Spend / purchases
	}

	return out
}

// AggregateMetrics is a multi-day fold of snapshots.
type AggregateMetrics struct {
	DayMetrics
	DaysCount int `json:"daysCount"`
}
