package ranker

import (
	"math"
	"time"
)

// Decay 参考条目的时间衰减权重：max(floor, 0.5^(age/halfLife))，
// age 以天计，未来时间按 0 处理。结果随 age 单调不增，落在 [floor, 1]
func Decay(addedAt, now time.Time, halfLifeDays, floor float64) float64 {
	if halfLifeDays <= 0 {
		return 1
	}
	age := now.Sub(addedAt).Hours() / 24
	if age < 0 {
		age = 0
	}
	return math.Max(floor, math.Pow(0.5, age/halfLifeDays))
}
