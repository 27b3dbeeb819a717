package finops

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testExport = `Timestamp,ResourceId,Name,InstanceSize,Region,Subscription,Service,Component,Instance,Environment,Partition,AvgCpuPercent,DiskSizeGB
2026-03-01 00:00:00,vm-1,api-vm-1,Standard_D2s_v3,westeurope,sub-1,api,frontend,i-1,prod,eu,42.5,128
2026-03-01 01:00:00,vm-1,api-vm-1,Standard_D2s_v3,westeurope,sub-1,api,frontend,i-1,prod,eu,17.1,128
2026-03-01T00:00:00Z,vm-2,db-vm-2,Standard_E8s_v5,northeurope,-,db,-,i-2,prod,eu,80,512
not-a-time,vm-3,broken,Standard_B2s,westeurope,sub-1,api,frontend,i-3,prod,eu,10,64
2026-03-01 00:00:00,vm-4,broken,Standard_B2s,westeurope,sub-1,api,frontend,i-4,prod,eu,nope,64
`

func TestReadExport(t *testing.T) {
	result := &ReadResult{Meta: make(map[string]Metadata)}
	assert.NoError(t, Read(strings.NewReader(testExport), result))

	assert.Equal(t, 5, result.Rows)
	assert.Equal(t, 2, result.BadRows)
	assert.Len(t, result.Samples, 3)

	first := result.Samples[0]
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), first.Timestamp)
	assert.Equal(t, "vm-1", first.ResourceID)
	assert.Equal(t, "Standard_D2s_v3", first.InstanceClass)
	assert.Equal(t, "westeurope", first.Region)
	assert.Equal(t, "eu", first.GroupKey)
	assert.Equal(t, 42.5, first.CPUUtilizationPct)
	assert.Equal(t, 128.0, first.StorageRequestedGB)
	assert.Equal(t, time.Hour, first.Duration)

	meta := result.Meta["vm-2"]
	assert.Equal(t, "db-vm-2", meta.Name)
	assert.Equal(t, "", meta.Subscription) // dashes mean absent
	assert.Equal(t, "", meta.Component)
	assert.Equal(t, "Standard_E8s_v5", meta.InstanceSize)
}

func TestReadExportShuffledColumns(t *testing.T) {
	export := "DiskSizeGB,Region,AvgCpuPercent,ResourceId,InstanceSize,Timestamp\n" +
		"64,westeurope,55,vm-9,Standard_B2s,2026-03-01 12:00:00\n"

	result := &ReadResult{Meta: make(map[string]Metadata)}
	assert.NoError(t, Read(strings.NewReader(export), result))

	assert.Len(t, result.Samples, 1)
	assert.Equal(t, "vm-9", result.Samples[0].ResourceID)
	assert.Equal(t, 64.0, result.Samples[0].StorageRequestedGB)
	assert.Equal(t, 55.0, result.Samples[0].CPUUtilizationPct)
}

func TestReadExportMissingColumn(t *testing.T) {
	export := "Timestamp,ResourceId\n2026-03-01 00:00:00,vm-1\n"

	result := &ReadResult{Meta: make(map[string]Metadata)}
	assert.Error(t, Read(strings.NewReader(export), result))
}
