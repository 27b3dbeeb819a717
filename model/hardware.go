package model

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"io"
	"log/slog"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	carbonmeter "github.com/greenops/carbonmeter"
	"github.com/greenops/carbonmeter/internal/must"
)

//go:embed instances.csv
var instancesCSV []byte

// ProfileResolver is the read-only instance class lookup table. Built
// once at startup, never mutated afterwards, so concurrent readers
// need no locking.
type ProfileResolver struct {
	profiles map[string]carbonmeter.HardwareProfile
	names    []string
	fuzzy    bool
}

type ResolverOption func(r *ProfileResolver)

// WithFuzzyMatching resolves near-miss instance class spellings to the
// closest known class instead of failing. Off by default.
func WithFuzzyMatching() ResolverOption {
	return func(r *ProfileResolver) {
		r.fuzzy = true
	}
}

// NewProfileResolver builds a resolver from an explicit profile list.
// Profiles with a non-positive TDP or core count would poison every
// downstream division, so they are rejected up front.
func NewProfileResolver(profiles []carbonmeter.HardwareProfile, opts ...ResolverOption) (*ProfileResolver, error) {
	resolver := &ProfileResolver{
		profiles: make(map[string]carbonmeter.HardwareProfile, len(profiles)),
		names:    make([]string, 0, len(profiles)),
	}

	for _, profile := range profiles {
		if profile.InstanceClass == "" {
			return nil, carbonmeter.Configf("hardware profile with empty instance class")
		}
		if profile.TDPWatts <= 0 {
			return nil, carbonmeter.Configf("hardware profile %q has non-positive tdp", profile.InstanceClass)
		}
		if profile.VCPUsTotal <= 0 {
			return nil, carbonmeter.Configf("hardware profile %q has non-positive total vcpus", profile.InstanceClass)
		}
		resolver.profiles[profile.InstanceClass] = profile
		resolver.names = append(resolver.names, profile.InstanceClass)
	}

	for _, opt := range opts {
		opt(resolver)
	}
	return resolver, nil
}

// DefaultProfileResolver loads the embedded instance table.
func DefaultProfileResolver(opts ...ResolverOption) *ProfileResolver {
	resolver, err := NewProfileResolver(embeddedProfiles(), opts...)
	must.NoError(err)
	return resolver
}

func embeddedProfiles() []carbonmeter.HardwareProfile {
	reader := csv.NewReader(bytes.NewReader(instancesCSV))
	reader.Read() // skip header line

	profiles := make([]carbonmeter.HardwareProfile, 0, 32)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		must.NoError(err)

		profiles = append(profiles, carbonmeter.HardwareProfile{
			InstanceClass:  record[0],
			TDPWatts:       must.CastFloat64(record[1]),
			VCPUsTotal:     must.CastFloat64(record[2]),
			VCPUsAllocated: must.CastFloat64(record[3]),
			MemoryGB:       must.CastFloat64(record[4]),
		})
	}
	return profiles
}

// Resolve looks up the hardware profile of an instance class. Unknown
// classes return a ProfileNotFoundError so the caller can skip the
// sample without failing the whole batch.
func (r *ProfileResolver) Resolve(instanceClass string) (carbonmeter.HardwareProfile, error) {
	if profile, found := r.profiles[instanceClass]; found {
		return profile, nil
	}

	if r.fuzzy {
		if profile, found := r.resolveFuzzy(instanceClass); found {
			return profile, nil
		}
	}

	return carbonmeter.HardwareProfile{}, &carbonmeter.ProfileNotFoundError{InstanceClass: instanceClass}
}

func (r *ProfileResolver) resolveFuzzy(instanceClass string) (carbonmeter.HardwareProfile, bool) {
	ranks := fuzzy.RankFindNormalizedFold(instanceClass, r.names)
	if len(ranks) == 0 {
		return carbonmeter.HardwareProfile{}, false
	}

	sort.Sort(ranks)

	slog.Debug("fuzzy matched instance class",
		"source", instanceClass,
		"found", ranks[0].Target,
		"distance", ranks[0].Distance)

	return r.profiles[ranks[0].Target], true
}

// Len returns the number of known instance classes.
func (r *ProfileResolver) Len() int {
	return len(r.profiles)
}
