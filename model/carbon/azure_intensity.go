package carbon

// NewAzureIntensityMap returns yearly average grid intensities
// (gCO2eq/kWh) for the Azure regions we deploy to. The "global" entry
// is the European average and backs every region missing from the map.
func NewAzureIntensityMap() IntensityMap {
	return IntensityMap{
		"global":             281,
		"northeurope":        316,
		"westeurope":         268,
		"francecentral":      56,
		"francesouth":        56,
		"germanywestcentral": 344,
		"germanynorth":       344,
		"swedencentral":      29,
		"norwayeast":         29,
		"uksouth":            225,
		"ukwest":             225,
		"eastus":             379,
		"eastus2":            379,
		"westus":             322,
		"westus2":            261,
		"westus3":            392,
		"centralus":          454,
		"canadacentral":      128,
		"brazilsouth":        96,
		"southeastasia":      460,
		"eastasia":           610,
		"japaneast":          463,
		"australiaeast":      510,
		"centralindia":       632,
		"southafricanorth":   709,
	}
}
