package model

import (
	carbonmeter "github.com/greenops/carbonmeter"
)

// StorageCoefficients are the per-media static coefficients of
// provisioned storage.
type StorageCoefficients struct {
	// PowerWattsPerGB is the draw of one provisioned gigabyte.
	PowerWattsPerGB float64
	// EmbodiedGramsPerGB is the manufacturing emissions of one
	// gigabyte, spread over the device lifespan when prorating.
	EmbodiedGramsPerGB float64
}

// CoefficientSet is the process-wide read-only calculation
// configuration. Loaded once at startup, validated before any sample
// is processed, immutable afterwards.
type CoefficientSet struct {
	// MemoryWattsPerGB, 0.392 W/GB by default (cloud carbon footprint
	// methodology).
	MemoryWattsPerGB float64
	// Storage coefficients keyed by media. MediaUnknown is required:
	// it backs every sample that does not state its media.
	Storage map[carbonmeter.StorageMedia]StorageCoefficients
	// PUE is the datacenter power usage effectiveness.
	PUE float64
	// DeviceEmbodiedGrams is the total manufacturing emissions of one
	// host device.
	DeviceEmbodiedGrams float64
	// DeviceLifespanHours is the expected host lifetime over which
	// embodied emissions are prorated.
	DeviceLifespanHours float64
	// StorageLifespanHours is the expected disk lifetime.
	StorageLifespanHours float64
	// ReplicationFactors expands provisioned storage by its
	// replication scheme (LRS stores three copies, GRS six, ...).
	ReplicationFactors map[string]float64
}

// DefaultCoefficients returns the builtin coefficient set: cloud
// carbon footprint storage and memory coefficients, the hotcarbon'22
// SSD embodied figure, a four year device lifespan.
func DefaultCoefficients() CoefficientSet {
	return CoefficientSet{
		MemoryWattsPerGB: 0.392,
		Storage: map[carbonmeter.StorageMedia]StorageCoefficients{
			carbonmeter.MediaSSD:     {PowerWattsPerGB: 0.0012, EmbodiedGramsPerGB: 160},
			carbonmeter.MediaHDD:     {PowerWattsPerGB: 0.00065, EmbodiedGramsPerGB: 20},
			carbonmeter.MediaUnknown: {PowerWattsPerGB: 0.000925, EmbodiedGramsPerGB: 90},
		},
		PUE:                  1.05,
		DeviceEmbodiedGrams:  1_205_520, // average rack server, gCO2eq
		DeviceLifespanHours:  4 * 365 * 24,
		StorageLifespanHours: 4 * 365 * 24,
		ReplicationFactors: map[string]float64{
			"LRS":     3,
			"ZRS":     3,
			"GRS":     6,
			"RA_GRS":  6,
			"GZRS":    6,
			"RA_GZRS": 6,
		},
	}
}

// Validate rejects coefficient sets that would divide by zero or scale
// energy by nothing. Called once at startup; the pipeline refuses to
// start on failure.
func (c CoefficientSet) Validate() error {
	if c.MemoryWattsPerGB < 0 {
		return carbonmeter.Configf("memory coefficient must not be negative")
	}
	if c.PUE < 1 {
		return carbonmeter.Configf("pue must be at least 1, got %g", c.PUE)
	}
	if c.DeviceEmbodiedGrams < 0 {
		return carbonmeter.Configf("device embodied emissions must not be negative")
	}
	if c.DeviceLifespanHours <= 0 {
		return carbonmeter.Configf("device lifespan must be positive")
	}
	if c.StorageLifespanHours <= 0 {
		return carbonmeter.Configf("storage lifespan must be positive")
	}
	if _, found := c.Storage[carbonmeter.MediaUnknown]; !found {
		return carbonmeter.Configf("storage coefficients for unknown media are required")
	}
	for media, coeffs := range c.Storage {
		if coeffs.PowerWattsPerGB < 0 || coeffs.EmbodiedGramsPerGB < 0 {
			return carbonmeter.Configf("storage coefficients for media %q must not be negative", media)
		}
	}
	for scheme, factor := range c.ReplicationFactors {
		if factor < 1 {
			return carbonmeter.Configf("replication factor for %q must be at least 1", scheme)
		}
	}
	return nil
}

// StorageFor returns the coefficients of a media, falling back to the
// unknown media average.
func (c CoefficientSet) StorageFor(media carbonmeter.StorageMedia) StorageCoefficients {
	if coeffs, found := c.Storage[media]; found {
		return coeffs
	}
	return c.Storage[carbonmeter.MediaUnknown]
}

// EffectiveStorageGB expands a provisioned size by its replication
// factor. Unknown schemes count a single copy.
func (c CoefficientSet) EffectiveStorageGB(sizeGB float64, replication string) float64 {
	if factor, found := c.ReplicationFactors[replication]; found {
		return sizeGB * factor
	}
	return sizeGB
}
