package carbonmeter

import "fmt"

// ProfileNotFoundError reports an instance class absent from the
// hardware profile table. Callers skip the sample and keep going, a
// single unknown class must not fail an entire report.
type ProfileNotFoundError struct {
	InstanceClass string
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("hardware profile not found for instance class %q", e.InstanceClass)
}

// UnknownGridIntensityError reports a region with no configured grid
// carbon intensity and no explicit fallback.
type UnknownGridIntensityError struct {
	Region string
}

func (e *UnknownGridIntensityError) Error() string {
	return fmt.Sprintf("no grid carbon intensity configured for region %q", e.Region)
}

// InvalidSampleError reports a sample the pipeline cannot process
// (non-positive duration, negative allocation). The sample is excluded.
type InvalidSampleError struct {
	ResourceID string
	Reason     string
}

func (e *InvalidSampleError) Error() string {
	return fmt.Sprintf("invalid sample for resource %q: %s", e.ResourceID, e.Reason)
}

// ConfigurationError reports broken process-wide configuration
// (malformed curve, zero divisor coefficients). It is fatal: the
// pipeline refuses to start rather than emit partially wrong aggregates.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// Configf builds a ConfigurationError with a formatted reason.
func Configf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
