package model

// TrendPoint is one bucket of a per-calendar-day series. Date is the server's
// local date formatted as YYYY-MM-DD; Value is the net points moved (for the
// transaction trend) or the number of registrations (for the member trend).
type TrendPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// DashboardSummary is the snapshot view backing the dashboard cards.
type DashboardSummary struct {
	TotalPoints  int64     `json:"total_points"`
	TotalMembers int64     `json:"total_members"`
	TopMembers   []*Member `json:"top_members"`
}
