package publisher

// Summary is RunCycle's return value (spec.md §4.F entry point contract).
type Summary struct {
	Scanned     int `json:"scanned"`
	Attempted   int `json:"attempted"`
	Posted      int `json:"posted"`
	Failed      int `json:"failed"`
	Blocked     int `json:"blocked"`
	Rescheduled int `json:"rescheduled"`
}
