package carbonmeter

import "time"

// StorageMedia is the physical media backing a provisioned disk.
type StorageMedia string

const (
	MediaSSD     StorageMedia = "ssd"
	MediaHDD     StorageMedia = "hdd"
	MediaUnknown StorageMedia = "unknown"
)

// UsageSample is one normalized utilization measurement for a resource
// over a time interval. Samples are produced by external collaborators
// (telemetry clients, usage export readers) and passed by value into
// the pipeline.
type UsageSample struct {
	// Timestamp is the start of the measured interval.
	Timestamp time.Time
	// ResourceID uniquely identifies the measured resource (VM id, pod uid).
	ResourceID string
	// InstanceClass is the cloud instance size (e.g. Standard_D4s_v5).
	InstanceClass string
	// Region hosting the resource, used for grid intensity lookup.
	Region string
	// GroupKey is the logical grouping of the resource (application,
	// namespace, partition) used for vertical aggregation.
	GroupKey string
	// CPUUtilizationPct is the average CPU utilization over the interval.
	CPUUtilizationPct float64
	// MemoryRequestedGB is the allocated memory in gigabytes.
	MemoryRequestedGB float64
	// StorageRequestedGB is the provisioned disk size in gigabytes.
	StorageRequestedGB float64
	// VCPUsAllocated is the number of reserved cores. Zero means the
	// allocation is taken from the hardware profile of the instance class.
	VCPUsAllocated float64
	// Duration of the measured interval.
	Duration time.Duration
	// StorageMedia backing the provisioned disk, defaults to MediaUnknown.
	StorageMedia StorageMedia
	// StorageReplication is the replication scheme of the provisioned
	// storage (LRS, GRS, ...). Empty means no replication expansion.
	StorageReplication string
	// Labels carries pass-through metadata (service, subscription, ...).
	Labels map[string]string
}

// Validate reports whether the sample is usable by the pipeline.
func (s UsageSample) Validate() error {
	if s.Duration <= 0 {
		return &InvalidSampleError{ResourceID: s.ResourceID, Reason: "duration must be positive"}
	}
	if s.CPUUtilizationPct < 0 {
		return &InvalidSampleError{ResourceID: s.ResourceID, Reason: "negative cpu utilization"}
	}
	if s.MemoryRequestedGB < 0 || s.StorageRequestedGB < 0 || s.VCPUsAllocated < 0 {
		return &InvalidSampleError{ResourceID: s.ResourceID, Reason: "negative allocation"}
	}
	return nil
}

// Utilization returns the CPU utilization clamped to [0, 100].
func (s UsageSample) Utilization() float64 {
	return min(max(s.CPUUtilizationPct, 0), 100)
}

// HardwareProfile holds the static characteristics of an instance class.
// Profiles are loaded once at startup and never mutated.
type HardwareProfile struct {
	InstanceClass string
	// TDPWatts is the thermal design power of the host processor.
	TDPWatts float64
	// VCPUsTotal is the number of cores available on the host processor.
	VCPUsTotal float64
	// VCPUsAllocated is the number of cores reserved by the instance class.
	VCPUsAllocated float64
	MemoryGB       float64
}

// AllocatedCores returns the core reservation to account for: the
// sample's own allocation when set, the instance class default otherwise.
func (p HardwareProfile) AllocatedCores(s UsageSample) float64 {
	if s.VCPUsAllocated > 0 {
		return s.VCPUsAllocated
	}
	return p.VCPUsAllocated
}
