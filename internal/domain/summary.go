package domain

// SummaryWindowDays is the length of the rolling daily window exposed by the
// summary endpoint. Bucket 0 is the oldest day, bucket SummaryWindowDays-1 is
// the current UTC day.
const SummaryWindowDays = 30

// SummarySnapshot is the derived aggregate view of the ledger. It is computed
// as a unit: either every field reflects the same read of the ledger or the
// computation fails outright.
type SummarySnapshot struct {
	TotalVolume        int64            `json:"totalVolume"`
	AverageAmount      Cents            `json:"averageAmount"`
	StatusCount        map[Status]int64 `json:"statusCount"`
	DailyVolume        int64            `json:"dailyVolume"`
	DailyTotalAmount   Cents            `json:"dailyTotalAmount"`
	MonthlyVolume      int64            `json:"monthlyVolume"`
	MonthlyTotalAmount Cents            `json:"monthlyTotalAmount"`
	Last30DaysCount    []int64          `json:"last30DaysCount"`
	Last30DaysAmount   []Cents          `json:"last30DaysAmount"`
}

// Valid reports whether the snapshot has the shape consumers rely on. A cached
// snapshot that fails this check is treated as a miss and recomputed.
func (s SummarySnapshot) Valid() bool {
	if len(s.Last30DaysCount) != SummaryWindowDays || len(s.Last30DaysAmount) != SummaryWindowDays {
		return false
	}
	if s.StatusCount == nil {
		return false
	}
	for _, status := range Statuses() {
		if _, ok := s.StatusCount[status]; !ok {
			return false
		}
	}
	return true
}
