package patient

import "sort"

// Rank returns the waiting queue in serving order: emergencies first, then
// seniors, then everyone else, each tier ordered by queue number. The input
// is not mutated; served records are dropped. The sort is stable, so records
// with colliding queue numbers (possible across days) keep their relative
// input order.
func Rank(records []*Record) []*Record {
	ranked := make([]*Record, 0, len(records))
	for _, r := range records {
		if r.IsServed {
			continue
		}
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.IsEmergency != b.IsEmergency {
			return a.IsEmergency
		}
		if a.IsSenior() != b.IsSenior() {
			return a.IsSenior()
		}
		return a.QueueNumber < b.QueueNumber
	})

	return ranked
}
