package carbonmeter

// EnergyRecord holds the per-component power draw and energy consumption
// derived from one usage sample. Records are never mutated after
// creation, only combined into new aggregate records.
type EnergyRecord struct {
	CPUPower     Power
	MemoryPower  Power
	StoragePower Power

	CPUEnergy     Energy
	MemoryEnergy  Energy
	StorageEnergy Energy

	// TotalEnergy is the sum of the per-component energies.
	TotalEnergy Energy
	// AdjustedEnergy is TotalEnergy scaled by the datacenter PUE.
	AdjustedEnergy Energy
}

// Add combines two energy records field by field into a new record.
func (r EnergyRecord) Add(other EnergyRecord) EnergyRecord {
	return EnergyRecord{
		CPUPower:       r.CPUPower + other.CPUPower,
		MemoryPower:    r.MemoryPower + other.MemoryPower,
		StoragePower:   r.StoragePower + other.StoragePower,
		CPUEnergy:      r.CPUEnergy + other.CPUEnergy,
		MemoryEnergy:   r.MemoryEnergy + other.MemoryEnergy,
		StorageEnergy:  r.StorageEnergy + other.StorageEnergy,
		TotalEnergy:    r.TotalEnergy + other.TotalEnergy,
		AdjustedEnergy: r.AdjustedEnergy + other.AdjustedEnergy,
	}
}

// CarbonRecord holds the emissions derived from one energy record and
// the static embodied coefficients.
type CarbonRecord struct {
	// Operational emissions from the grid energy consumed.
	Operational Emissions
	// EmbodiedCPU is the manufacturing share prorated by core
	// reservation and usage duration.
	EmbodiedCPU Emissions
	// EmbodiedStorage is the manufacturing share of the provisioned disks.
	EmbodiedStorage Emissions
	EmbodiedTotal   Emissions
	// Total is operational plus embodied, the SCI-equivalent figure.
	Total Emissions
}

// Add combines two carbon records field by field into a new record.
func (r CarbonRecord) Add(other CarbonRecord) CarbonRecord {
	return CarbonRecord{
		Operational:     r.Operational + other.Operational,
		EmbodiedCPU:     r.EmbodiedCPU + other.EmbodiedCPU,
		EmbodiedStorage: r.EmbodiedStorage + other.EmbodiedStorage,
		EmbodiedTotal:   r.EmbodiedTotal + other.EmbodiedTotal,
		Total:           r.Total + other.Total,
	}
}
