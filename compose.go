package carbonmeter

import "time"

// EmptyBucketPolicy decides what happens to buckets with no
// contributing samples. The default keeps them as zero values so the
// output series length matches the requested number of sampling points.
type EmptyBucketPolicy int

const (
	ZeroFillEmptyBuckets EmptyBucketPolicy = iota
	OmitEmptyBuckets
)

// Report is the composed output for one grouping key: parallel ordered
// per-bucket series for each tracked metric plus scalar totals over the
// whole horizon. Metrics absent from the active pipeline variant are
// emitted as zero series so the schema stays stable across variants.
type Report struct {
	Group      string      `json:"group"`
	Timestamps []time.Time `json:"timestamps"`

	EnergyKWh         []float64 `json:"energy_kwh"`
	CPUEnergyKWh      []float64 `json:"cpu_energy_kwh"`
	MemoryEnergyKWh   []float64 `json:"memory_energy_kwh"`
	StorageEnergyKWh  []float64 `json:"storage_energy_kwh"`
	OperationalG      []float64 `json:"operational_g"`
	EmbodiedG         []float64 `json:"embodied_g"`
	TotalG            []float64 `json:"total_g"`
	CPUPowerKW        []float64 `json:"cpu_power_kw"`
	MemoryPowerKW     []float64 `json:"memory_power_kw"`
	RequestedCPUCores []float64 `json:"requested_cpu_cores"`
	RequestedMemoryGB []float64 `json:"requested_memory_gb"`
	CPUUtilizationPct []float64 `json:"cpu_utilization_pct"`

	Totals Totals `json:"totals"`
}

// Totals are the horizon sums of every tracked metric.
type Totals struct {
	EnergyKWh        float64 `json:"energy_kwh"`
	CPUEnergyKWh     float64 `json:"cpu_energy_kwh"`
	MemoryEnergyKWh  float64 `json:"memory_energy_kwh"`
	StorageEnergyKWh float64 `json:"storage_energy_kwh"`
	OperationalG     float64 `json:"operational_g"`
	EmbodiedCPUG     float64 `json:"embodied_cpu_g"`
	EmbodiedStorageG float64 `json:"embodied_storage_g"`
	EmbodiedG        float64 `json:"embodied_g"`
	TotalG           float64 `json:"total_g"`
	Samples          int     `json:"samples"`
}

// Composer assembles final reports from an aggregator.
type Composer struct {
	Policy EmptyBucketPolicy
}

// Compose builds one report per grouping key, in stable group order.
// Totals are computed by summing the emitted buckets, so the horizon
// total always equals the sum of the per-bucket values.
func (c Composer) Compose(a *Aggregator) []Report {
	reports := make([]Report, 0, len(a.Groups()))
	for _, group := range a.Groups() {
		reports = append(reports, c.compose(group, a.Window(), a.Series(group)))
	}
	return reports
}

func (c Composer) compose(group string, window Window, buckets []Bucket) Report {
	report := Report{Group: group}

	for i, b := range buckets {
		if c.Policy == OmitEmptyBuckets && b.Samples == 0 {
			continue
		}

		report.Timestamps = append(report.Timestamps, window.BucketTime(i))
		report.EnergyKWh = append(report.EnergyKWh, float64(b.Energy.AdjustedEnergy))
		report.CPUEnergyKWh = append(report.CPUEnergyKWh, float64(b.Energy.CPUEnergy))
		report.MemoryEnergyKWh = append(report.MemoryEnergyKWh, float64(b.Energy.MemoryEnergy))
		report.StorageEnergyKWh = append(report.StorageEnergyKWh, float64(b.Energy.StorageEnergy))
		report.OperationalG = append(report.OperationalG, float64(b.Carbon.Operational))
		report.EmbodiedG = append(report.EmbodiedG, float64(b.Carbon.EmbodiedTotal))
		report.TotalG = append(report.TotalG, float64(b.Carbon.Total))
		report.CPUPowerKW = append(report.CPUPowerKW, float64(b.Energy.CPUPower))
		report.MemoryPowerKW = append(report.MemoryPowerKW, float64(b.Energy.MemoryPower))
		report.RequestedCPUCores = append(report.RequestedCPUCores, b.RequestedCPU)
		report.RequestedMemoryGB = append(report.RequestedMemoryGB, b.RequestedMemoryGB)
		report.CPUUtilizationPct = append(report.CPUUtilizationPct, b.CPUUtilizationPct)

		report.Totals.EnergyKWh += float64(b.Energy.AdjustedEnergy)
		report.Totals.CPUEnergyKWh += float64(b.Energy.CPUEnergy)
		report.Totals.MemoryEnergyKWh += float64(b.Energy.MemoryEnergy)
		report.Totals.StorageEnergyKWh += float64(b.Energy.StorageEnergy)
		report.Totals.OperationalG += float64(b.Carbon.Operational)
		report.Totals.EmbodiedCPUG += float64(b.Carbon.EmbodiedCPU)
		report.Totals.EmbodiedStorageG += float64(b.Carbon.EmbodiedStorage)
		report.Totals.EmbodiedG += float64(b.Carbon.EmbodiedTotal)
		report.Totals.TotalG += float64(b.Carbon.Total)
		report.Totals.Samples += b.Samples
	}

	return report
}
