package analysis

import (
	"time"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
)

// IdleBurstConfig parameterizes the idle-then-burst scan.
type IdleBurstConfig struct {
	// MinIdleDays is the number of zero days that must be exceeded.
	MinIdleDays int
	// BurstCoreHours is the accumulated usage that completes a burst.
	BurstCoreHours float64
}

// DefaultIdleBurst is more than two weeks idle followed by 1000 core-hours.
var DefaultIdleBurst = IdleBurstConfig{MinIdleDays: 14, BurstCoreHours: 1000}

// DetectIdleBursts scans one identity's series left to right. A run of more
// than MinIdleDays zero days followed by consecutive non-zero days whose sum
// reaches BurstCoreHours yields an episode; the scan then resets and keeps
// looking. A zero day inside an unfinished burst abandons it and starts a
// new idle run. days[i] is the date of series.Values[i].
func DetectIdleBursts(days []time.Time, series entity.UsageSeries, cfg IdleBurstConfig) []entity.IdleEpisode {
	var (
		episodes   []entity.IdleEpisode
		zeros      int
		burstUsage float64
		burstStart = -1
	)

	for i, v := range series.Values {
		if v == 0 {
			if burstStart >= 0 {
				burstStart, burstUsage, zeros = -1, 0, 0
			}
			zeros++
			continue
		}

		if zeros <= cfg.MinIdleDays {
			zeros = 0
			continue
		}

		if burstStart < 0 {
			burstStart = i
		}
		burstUsage += v
		if burstUsage >= cfg.BurstCoreHours {
			episodes = append(episodes, entity.IdleEpisode{
				Identity:    series.Identity,
				IdleDays:    zeros,
				WindowStart: dayAt(days, burstStart),
				WindowEnd:   dayAt(days, i),
			})
			burstStart, burstUsage, zeros = -1, 0, 0
		}
	}

	return episodes
}

func dayAt(days []time.Time, i int) time.Time {
	if i < 0 || i >= len(days) {
		return time.Time{}
	}
	return days[i]
}
