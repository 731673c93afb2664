package board

import (
	"sort"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
)

// AirlineCount is the number of flights operated by one airline
type AirlineCount struct {
	Airline string `json:"airline"`
	Count   int    `json:"count"`
}

// ByCount orders counts from most to fewest flights, then by name
type ByCount []AirlineCount

func (a ByCount) Len() int { return len(a) }
func (a ByCount) Less(i, j int) bool {
	if a[i].Count != a[j].Count {
		return a[i].Count > a[j].Count
	}
	return a[i].Airline < a[j].Airline
}
func (a ByCount) Swap(i, j int) { a[i], a[j] = a[j], a[i] }

// AirlineStats counts flights per airline
func AirlineStats(flights []adsb.FlightRecord) []AirlineCount {
	counts := make(map[string]int)
	for _, f := range flights {
		counts[f.Airline]++
	}

	stats := make([]AirlineCount, 0, len(counts))
	for airline, count := range counts {
		stats = append(stats, AirlineCount{Airline: airline, Count: count})
	}
	sort.Sort(ByCount(stats))
	return stats
}
