package store

// Runner is one row of the 러너 worksheet. Rows are created on first contact
// and never deleted.
type Runner struct {
	Handle          string
	Nickname        string
	Dorm            string
	HousePoints     int
	LastAttendDate  string // YYYY-MM-DD in the bot timezone, empty if never
	LastConfirmDate string
}

// ExploreNode is one row of the 탐색 worksheet. The rows form a forest:
// Parent is empty for roots. Read-only at runtime.
type ExploreNode struct {
	Area    string
	Parent  string
	Place   string // narrative text shown on arrival
	CoinMin int
	CoinMax int
	Item    string
	Qty     int
	Rumor   string
}

// Worksheets maps logical tables to worksheet titles.
type Worksheets struct {
	Runner        string
	Limits        string
	Explore       string
	Session       string
	Participation string
	Config        string
	Bag           string
}
