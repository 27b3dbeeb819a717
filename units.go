package carbonmeter

import "time"

// Power in kilowatts.
type Power float64

// Watts converts a power value to watts.
func (p Power) Watts() float64 {
	return float64(p) * 1000
}

// Over integrates a constant power draw over a duration.
func (p Power) Over(d time.Duration) Energy {
	return Energy(float64(p) * d.Hours())
}

// Energy in kilowatt-hours.
type Energy float64

func (e Energy) WattHours() float64 {
	return float64(e) * 1000
}

// Emissions in gCO2eq.
type Emissions float64

func (e Emissions) KgCO2eq() float64 {
	return float64(e) / 1000
}

func (e Emissions) TCO2eq() float64 {
	return e.KgCO2eq() / 1000
}
