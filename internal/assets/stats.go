package assets

import "time"

// Stats are maintained incrementally as fetches settle.
type Stats struct {
	TotalPreloads     int           `json:"totalPreloads"`
	Successful        int           `json:"successful"`
	Failed            int           `json:"failed"`
	SuccessRate       float64       `json:"successRate"`
	AverageLoadTime   time.Duration `json:"averageLoadTime"`
	MemoryUsage       int64         `json:"memoryUsage"`
	EmergencyPreloads int           `json:"emergencyPreloads"`
	Tracked           int           `json:"tracked"`
}

const emaWeight = 0.1

func (s *Stats) record(ok bool, elapsed time.Duration) {
	s.TotalPreloads++
	if ok {
		s.Successful++
		if s.Successful == 1 {
			s.AverageLoadTime = elapsed
		} else {
			s.AverageLoadTime = time.Duration(float64(s.AverageLoadTime)*(1-emaWeight) + float64(elapsed)*emaWeight)
		}
	} else {
		s.Failed++
	}
	s.SuccessRate = float64(s.Successful) / float64(s.TotalPreloads)
}
