package carbonmeter

// ProfileResolver maps an instance class to its hardware profile.
type ProfileResolver interface {
	Resolve(instanceClass string) (HardwareProfile, error)
}

// EnergyEstimator turns a usage sample and a hardware profile into an
// energy record.
type EnergyEstimator interface {
	Energy(s UsageSample, p HardwareProfile) EnergyRecord
}

// OperationalEstimator converts PUE-adjusted energy into operational
// emissions using the grid carbon intensity of the region.
type OperationalEstimator interface {
	Operational(adjusted Energy, region string) (Emissions, error)
}

// EmbodiedEstimator prorates manufacturing emissions over the sample's
// duration and allocated capacity share.
type EmbodiedEstimator interface {
	Embodied(s UsageSample, p HardwareProfile) (cpu, storage Emissions)
}

// Processor computes the energy and carbon records for a single usage
// sample. It is a pure function of (sample, profile, coefficients):
// no hidden state, safe to re-run idempotently, safe to share across
// goroutines.
type Processor struct {
	Resolver    ProfileResolver
	Energy      EnergyEstimator
	Operational OperationalEstimator
	Embodied    EmbodiedEstimator
}

func (p Processor) validate() error {
	if p.Resolver == nil || p.Energy == nil || p.Operational == nil || p.Embodied == nil {
		return Configf("sample processor is missing a stage")
	}
	return nil
}

// Process runs the full calculation for one sample. Recoverable
// conditions (unknown instance class, unknown grid intensity, invalid
// sample) are returned as typed errors so the caller can exclude the
// sample and continue.
func (p Processor) Process(sample UsageSample) (EnergyRecord, CarbonRecord, error) {
	if err := sample.Validate(); err != nil {
		return EnergyRecord{}, CarbonRecord{}, err
	}

	profile, err := p.Resolver.Resolve(sample.InstanceClass)
	if err != nil {
		return EnergyRecord{}, CarbonRecord{}, err
	}

	energy := p.Energy.Energy(sample, profile)

	operational, err := p.Operational.Operational(energy.AdjustedEnergy, sample.Region)
	if err != nil {
		return EnergyRecord{}, CarbonRecord{}, err
	}

	embodiedCPU, embodiedStorage := p.Embodied.Embodied(sample, profile)

	carbon := CarbonRecord{
		Operational:     operational,
		EmbodiedCPU:     embodiedCPU,
		EmbodiedStorage: embodiedStorage,
		EmbodiedTotal:   embodiedCPU + embodiedStorage,
	}
	carbon.Total = carbon.Operational + carbon.EmbodiedTotal

	return energy, carbon, nil
}
