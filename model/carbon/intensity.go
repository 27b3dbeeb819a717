package carbon

import (
	"strings"

	carbonmeter "github.com/greenops/carbonmeter"
)

// IntensityMap regroups grid carbon intensity (gCO2eq/kWh) by region.
// Regions match by longest prefix; the optional "global" entry is the
// explicit fallback for regions absent from the map.
type IntensityMap map[string]float64

// Average returns the mean intensity of the regions matching one of
// the given prefixes, or of the whole map when no prefix is given.
func (intensity IntensityMap) Average(regions ...string) float64 {
	avg := 0.0
	adds := 0.0
	for region, gramsPerKWh := range intensity {
		if !hasOnePrefix(region, regions...) {
			continue
		}
		avg = avg + gramsPerKWh
		adds = adds + 1.0
	}
	return avg / adds
}

func hasOnePrefix(s string, prefixes ...string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Get returns the intensity of the longest region prefix matching the
// given region. A region with no match resolves to the "global" entry;
// without one the lookup fails with UnknownGridIntensityError. The
// fallback is therefore always an explicit operator decision, never a
// silent zero.
func (intensity IntensityMap) Get(region string) (float64, error) {
	matchedSize := -1
	matched := 0.0

	if global, found := intensity["global"]; found {
		matchedSize = 0
		matched = global
	}

	for prefix, gramsPerKWh := range intensity {
		if prefix == "global" {
			continue
		}
		if strings.HasPrefix(region, prefix) && len(prefix) > matchedSize {
			matchedSize = len(prefix)
			matched = gramsPerKWh
		}
	}

	if matchedSize < 0 {
		return 0, &carbonmeter.UnknownGridIntensityError{Region: region}
	}
	return matched, nil
}

// Operational implements the carbonmeter.OperationalEstimator
// interface: PUE-adjusted energy times the grid intensity of the
// region.
func (intensity IntensityMap) Operational(adjusted carbonmeter.Energy, region string) (carbonmeter.Emissions, error) {
	gramsPerKWh, err := intensity.Get(region)
	if err != nil {
		return 0, err
	}
	return carbonmeter.Emissions(float64(adjusted) * gramsPerKWh), nil
}
