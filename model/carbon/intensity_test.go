package carbon

import (
	"testing"

	"github.com/stretchr/testify/assert"

	carbonmeter "github.com/greenops/carbonmeter"
)

func TestIntensityMapGet(t *testing.T) {
	testMap := IntensityMap{
		"global":       281,
		"europe-west":  100,
		"europe-west1": 50,
	}

	gramsPerKWh, err := testMap.Get("europe-west1")
	assert.NoError(t, err)
	assert.Equal(t, 50.0, gramsPerKWh) // longest prefix wins

	gramsPerKWh, err = testMap.Get("europe-west4")
	assert.NoError(t, err)
	assert.Equal(t, 100.0, gramsPerKWh)

	gramsPerKWh, err = testMap.Get("asia-north1")
	assert.NoError(t, err)
	assert.Equal(t, 281.0, gramsPerKWh)
}

func TestIntensityMapGetWithoutFallback(t *testing.T) {
	testMap := IntensityMap{"europe-west1": 50}

	_, err := testMap.Get("asia-north1")
	intensityErr := new(carbonmeter.UnknownGridIntensityError)
	assert.ErrorAs(t, err, &intensityErr)
	assert.Equal(t, "asia-north1", intensityErr.Region)
}

func TestIntensityMapAverage(t *testing.T) {
	testMap := IntensityMap{
		"europe-west1": 1,
		"europe-west2": 2,
		"asia-north3":  3,
	}

	assert.Equal(t, 1.5, testMap.Average("europe"))
	assert.Equal(t, 2.0, testMap.Average())
}

func TestOperationalEmissions(t *testing.T) {
	testMap := IntensityMap{"westeurope": 44}

	emissions, err := testMap.Operational(carbonmeter.Energy(0.1126), "westeurope")
	assert.NoError(t, err)
	assert.InDelta(t, 4.9544, float64(emissions), 1e-9)

	_, err = testMap.Operational(carbonmeter.Energy(1), "mars")
	assert.Error(t, err)
}

func TestAzureIntensityMapHasGlobalFallback(t *testing.T) {
	intensity := NewAzureIntensityMap()

	gramsPerKWh, err := intensity.Get("antarctica")
	assert.NoError(t, err)
	assert.Equal(t, 281.0, gramsPerKWh)

	gramsPerKWh, err = intensity.Get("swedencentral")
	assert.NoError(t, err)
	assert.Equal(t, 29.0, gramsPerKWh)
}
