package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	carbonmeter "github.com/greenops/carbonmeter"
	"github.com/greenops/carbonmeter/model"
	"github.com/greenops/carbonmeter/model/carbon"
)

// Config is the process-wide pipeline configuration surface. Every
// field is optional: zero values fall back to the builtin defaults
// (Teads curve, cloud carbon footprint coefficients, Azure intensity
// table, embedded instance table).
type Config struct {
	Curve struct {
		Utilization []float64 `yaml:"utilization"`
		Ratio       []float64 `yaml:"ratio"`
	} `yaml:"curve"`

	MemoryWattsPerGB     float64                  `yaml:"memoryWattsPerGB"`
	PUE                  float64                  `yaml:"pue"`
	DeviceEmbodiedGrams  float64                  `yaml:"deviceEmbodiedGrams"`
	DeviceLifespanHours  float64                  `yaml:"deviceLifespanHours"`
	StorageLifespanHours float64                  `yaml:"storageLifespanHours"`
	Storage              map[string]StorageConfig `yaml:"storage"`

	GridIntensity map[string]float64 `yaml:"gridIntensity"`

	HardwareProfiles     []ProfileConfig `yaml:"hardwareProfiles"`
	FuzzyProfileMatching bool            `yaml:"fuzzyProfileMatching"`
}

type StorageConfig struct {
	PowerWattsPerGB    float64 `yaml:"powerWattsPerGB"`
	EmbodiedGramsPerGB float64 `yaml:"embodiedGramsPerGB"`
}

type ProfileConfig struct {
	InstanceClass  string  `yaml:"instanceClass"`
	TDPWatts       float64 `yaml:"tdpWatts"`
	VCPUsTotal     float64 `yaml:"vcpusTotal"`
	VCPUsAllocated float64 `yaml:"vcpusAllocated"`
	MemoryGB       float64 `yaml:"memoryGB"`
}

// Load reads a YAML configuration file. An empty path returns the
// defaults-only configuration.
func Load(path string) (*Config, error) {
	cfg := new(Config)
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, carbonmeter.Configf("malformed configuration file %s: %s", path, err)
	}
	return cfg, nil
}

// Override applies loosely typed key/value settings (command line -set
// flags, environment scraping) on top of the file configuration. Keys
// are the yaml field names.
func (c *Config) Override(values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(values); err != nil {
		return carbonmeter.Configf("invalid override: %s", err)
	}
	return nil
}

// BuildCurve returns the configured utilization curve.
func (c *Config) BuildCurve() (*model.Curve, error) {
	if len(c.Curve.Utilization) == 0 && len(c.Curve.Ratio) == 0 {
		return model.DefaultCurve(), nil
	}
	return model.NewCurve(c.Curve.Utilization, c.Curve.Ratio)
}

// BuildCoefficients returns the coefficient set with configured fields
// layered over the defaults.
func (c *Config) BuildCoefficients() (model.CoefficientSet, error) {
	coeffs := model.DefaultCoefficients()

	if c.MemoryWattsPerGB != 0 {
		coeffs.MemoryWattsPerGB = c.MemoryWattsPerGB
	}
	if c.PUE != 0 {
		coeffs.PUE = c.PUE
	}
	if c.DeviceEmbodiedGrams != 0 {
		coeffs.DeviceEmbodiedGrams = c.DeviceEmbodiedGrams
	}
	if c.DeviceLifespanHours != 0 {
		coeffs.DeviceLifespanHours = c.DeviceLifespanHours
	}
	if c.StorageLifespanHours != 0 {
		coeffs.StorageLifespanHours = c.StorageLifespanHours
	}
	for media, storage := range c.Storage {
		coeffs.Storage[carbonmeter.StorageMedia(media)] = model.StorageCoefficients{
			PowerWattsPerGB:    storage.PowerWattsPerGB,
			EmbodiedGramsPerGB: storage.EmbodiedGramsPerGB,
		}
	}

	if err := coeffs.Validate(); err != nil {
		return model.CoefficientSet{}, err
	}
	return coeffs, nil
}

// BuildIntensity returns the Azure intensity table with configured
// regions layered on top.
func (c *Config) BuildIntensity() carbon.IntensityMap {
	intensity := carbon.NewAzureIntensityMap()
	for region, gramsPerKWh := range c.GridIntensity {
		intensity[region] = gramsPerKWh
	}
	return intensity
}

// BuildResolver returns the hardware profile table: the configured
// profiles when any are set, the embedded instance table otherwise.
func (c *Config) BuildResolver() (*model.ProfileResolver, error) {
	var opts []model.ResolverOption
	if c.FuzzyProfileMatching {
		opts = append(opts, model.WithFuzzyMatching())
	}

	if len(c.HardwareProfiles) == 0 {
		return model.DefaultProfileResolver(opts...), nil
	}

	profiles := make([]carbonmeter.HardwareProfile, 0, len(c.HardwareProfiles))
	for _, p := range c.HardwareProfiles {
		profiles = append(profiles, carbonmeter.HardwareProfile{
			InstanceClass:  p.InstanceClass,
			TDPWatts:       p.TDPWatts,
			VCPUsTotal:     p.VCPUsTotal,
			VCPUsAllocated: p.VCPUsAllocated,
			MemoryGB:       p.MemoryGB,
		})
	}
	return model.NewProfileResolver(profiles, opts...)
}

// Processor assembles the fully validated sample processor for the
// given pipeline variant. Any configuration problem surfaces here,
// before a single sample is processed.
func (c *Config) Processor(variant model.Variant) (carbonmeter.Processor, error) {
	curve, err := c.BuildCurve()
	if err != nil {
		return carbonmeter.Processor{}, err
	}
	coeffs, err := c.BuildCoefficients()
	if err != nil {
		return carbonmeter.Processor{}, err
	}
	resolver, err := c.BuildResolver()
	if err != nil {
		return carbonmeter.Processor{}, err
	}

	return carbonmeter.Processor{
		Resolver:    resolver,
		Energy:      model.EnergyModel{Curve: curve, Coefficients: coeffs, Variant: variant},
		Operational: c.BuildIntensity(),
		Embodied:    model.EmbodiedModel{Coefficients: coeffs},
	}, nil
}
