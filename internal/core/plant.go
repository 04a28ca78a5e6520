package core

const (
	PlantThriving   PlantState = "thriving"
	PlantHealthy    PlantState = "healthy"
	PlantStruggling PlantState = "struggling"
	PlantWilting    PlantState = "wilting"
	PlantDead       PlantState = "dead"
)

// SummaryWindowDays is the trailing window the plant summary averages over.
// The divisor is fixed: days before the account existed count as full-limit
// surplus days.
const SummaryWindowDays = 7

// Classification thresholds, in cents.
const (
	deadBelow      = -500 // balance below -5.00
	thrivingFloor  = 1000 // balance at least 10.00
	thrivingAvgMin = 200  // average at least 2.00
	healthyAvgMin  = -200 // average at least -2.00
)

type (
	PlantState string

	// Summary is the 7-day health snapshot behind the plant on the home
	// screen. Balance is today's surplus, Avg7 the mean surplus across the
	// trailing window.
	Summary struct {
		Balance    Money
		Avg7       float64 // cents, fractional
		DailyLimit Money
		State      PlantState
	}
)

func (s PlantState) Emoji() string {
	switch s {
	case PlantThriving:
		return "🌳"
	case PlantHealthy:
		return "🌱"
	case PlantStruggling:
		return "🌿"
	case PlantWilting:
		return "🥀"
	case PlantDead:
		return "☠️"
	}
	return "🌱"
}

// ClassifyPlant maps today's balance and the 7-day average onto a plant
// state. The checks are ordered; the first match wins, so a deeply negative
// balance is dead no matter how good the week looked.
func ClassifyPlant(balance Money, avg7 float64) PlantState {
	switch {
	case balance.Cents < deadBelow:
		return PlantDead
	case balance.Cents < 0:
		return PlantWilting
	case balance.Cents >= thrivingFloor && avg7 >= thrivingAvgMin:
		return PlantThriving
	case avg7 >= healthyAvgMin:
		return PlantHealthy
	}
	return PlantStruggling
}

// NewSummary classifies and assembles a snapshot from computed figures.
func NewSummary(balance Money, avg7 float64, limit Money) Summary {
	return Summary{
		Balance:    balance,
		Avg7:       avg7,
		DailyLimit: limit,
		State:      ClassifyPlant(balance, avg7),
	}
}

// DefaultSummary is the safe snapshot served when the real one cannot be
// computed: the default limit, an untouched balance, a healthy plant.
func DefaultSummary() Summary {
	return Summary{
		Balance:    DefaultDailyLimit,
		Avg7:       float64(DefaultDailyLimit.Cents),
		DailyLimit: DefaultDailyLimit,
		State:      PlantHealthy,
	}
}
