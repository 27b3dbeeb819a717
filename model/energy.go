package model

import (
	carbonmeter "github.com/greenops/carbonmeter"
)

// Variant is the pipeline shape: whole-device accounting for
// infrastructure reports, partial-core accounting for application
// workloads sharing a host.
type Variant int

const (
	// VariantInfrastructure models a whole VM: full TDP, storage included.
	VariantInfrastructure Variant = iota
	// VariantApplication models a partial-core reservation: CPU power
	// scaled by reserved over total cores.
	VariantApplication
)

// EnergyModel converts a usage sample and its hardware profile into
// per-component power and energy.
type EnergyModel struct {
	Curve        *Curve
	Coefficients CoefficientSet
	Variant      Variant
}

// Energy implements the carbonmeter.EnergyEstimator interface.
//
// CPU power is the interpolated TDP ratio times the processor TDP,
// scaled by the core reservation share under the application variant.
// Memory and storage power are linear in the allocated gigabytes.
// Component energies integrate power over the sample duration; the
// adjusted total applies the datacenter PUE.
func (m EnergyModel) Energy(s carbonmeter.UsageSample, p carbonmeter.HardwareProfile) carbonmeter.EnergyRecord {
	ratio := m.Curve.Ratio(s.Utilization())

	cpuPower := carbonmeter.Power(ratio * p.TDPWatts / 1000)
	if m.Variant == VariantApplication {
		cpuPower *= carbonmeter.Power(p.AllocatedCores(s) / p.VCPUsTotal)
	}

	memoryPower := carbonmeter.Power(s.MemoryRequestedGB * m.Coefficients.MemoryWattsPerGB / 1000)

	storageGB := m.Coefficients.EffectiveStorageGB(s.StorageRequestedGB, s.StorageReplication)
	storagePower := carbonmeter.Power(storageGB * m.Coefficients.StorageFor(s.StorageMedia).PowerWattsPerGB / 1000)

	record := carbonmeter.EnergyRecord{
		CPUPower:      cpuPower,
		MemoryPower:   memoryPower,
		StoragePower:  storagePower,
		CPUEnergy:     cpuPower.Over(s.Duration),
		MemoryEnergy:  memoryPower.Over(s.Duration),
		StorageEnergy: storagePower.Over(s.Duration),
	}
	record.TotalEnergy = record.CPUEnergy + record.MemoryEnergy + record.StorageEnergy
	record.AdjustedEnergy = record.TotalEnergy * carbonmeter.Energy(m.Coefficients.PUE)

	return record
}

// EmbodiedModel prorates manufacturing emissions over usage duration
// and allocated capacity share.
type EmbodiedModel struct {
	Coefficients CoefficientSet
}

// Embodied implements the carbonmeter.EmbodiedEstimator interface.
//
// The CPU share charges the device's total embodied emissions by
// reserved core fraction and by used fraction of the expected
// lifetime. The storage share charges the per-gigabyte embodied
// coefficient the same way over the disk lifespan.
func (m EmbodiedModel) Embodied(s carbonmeter.UsageSample, p carbonmeter.HardwareProfile) (cpu, storage carbonmeter.Emissions) {
	usedHours := s.Duration.Hours()

	coreShare := p.AllocatedCores(s) / p.VCPUsTotal
	cpu = carbonmeter.Emissions(m.Coefficients.DeviceEmbodiedGrams * coreShare * usedHours / m.Coefficients.DeviceLifespanHours)

	storageGB := m.Coefficients.EffectiveStorageGB(s.StorageRequestedGB, s.StorageReplication)
	embodiedPerGB := m.Coefficients.StorageFor(s.StorageMedia).EmbodiedGramsPerGB
	storage = carbonmeter.Emissions(storageGB * embodiedPerGB * usedHours / m.Coefficients.StorageLifespanHours)

	return cpu, storage
}
