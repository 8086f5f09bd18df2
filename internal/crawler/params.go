package crawler

import (
	"strconv"
	"time"
)

// Search is the fixed part of the result page query.
type Search struct {
	Industries string
	// WindowYears is the length of the trailing date window, a year being
	// 365 days.
	WindowYears int
}

func DefaultSearch() Search {
	return Search{
		Industries:  "046,047,005,006,058,025",
		WindowYears: 10,
	}
}

// Window returns the date range ending at now.
func (s Search) Window(now time.Time) (from, to time.Time) {
	to = now
	from = to.AddDate(0, 0, -365*s.WindowYears)
	return from, to
}

// Params returns the query for result page `page`. from and to are computed
// once per run so every page of a run uses the same window.
func (s Search) Params(from, to time.Time, page int) map[string]string {
	return map[string]string{
		"lang":               "EN",
		"page_no":            strconv.Itoa(page),
		"company_search":     "All (or type a name)",
		"document_selection": "0",
		"industry_group":     s.Industries,
		"FromDate":           from.Format("02"),
		"FromMonth":          from.Format("01"),
		"FromYear":           from.Format("2006"),
		"ToDate":             to.Format("02"),
		"ToMonth":            to.Format("01"),
		"ToYear":             to.Format("2006"),
		"Variable":           "Issuer",
	}
}
