// Package finops reads FinOps VM usage exports and writes the daily
// carbon report consumed by the reporting side.
package finops

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	carbonmeter "github.com/greenops/carbonmeter"
)

// Export column names. Files are header addressed so column order does
// not matter.
const (
	colTimestamp    = "Timestamp"
	colResourceID   = "ResourceId"
	colInstanceSize = "InstanceSize"
	colRegion       = "Region"
	colService      = "Service"
	colComponent    = "Component"
	colSubscription = "Subscription"
	colName         = "Name"
	colInstance     = "Instance"
	colEnvironment  = "Environment"
	colPartition    = "Partition"
	colCPUPercent   = "AvgCpuPercent"
	colDiskGB       = "DiskSizeGB"
)

var requiredColumns = []string{
	colTimestamp, colResourceID, colInstanceSize, colRegion, colCPUPercent, colDiskGB,
}

// sampleDuration is the interval covered by one export row. Exports
// are hourly.
const sampleDuration = time.Hour

// Metadata is the pass-through reporting metadata of one VM.
type Metadata struct {
	Name         string
	Region       string
	Subscription string
	InstanceSize string
	Service      string
	Instance     string
	Environment  string
	Partition    string
	Component    string
}

// ReadResult is the logical concatenation of every read export file.
// Overlapping exports are not deduplicated here: the pipeline dedupes
// by (resource, timestamp) identity before aggregation.
type ReadResult struct {
	Samples []carbonmeter.UsageSample
	// Meta indexes reporting metadata by resource id.
	Meta    map[string]Metadata
	Rows    int
	BadRows int
}

// ReadFiles reads and concatenates several export files.
func ReadFiles(paths []string) (*ReadResult, error) {
	result := &ReadResult{Meta: make(map[string]Metadata)}

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open usage export: %w", err)
		}
		err = Read(f, result)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read usage export %s: %w", path, err)
		}
		slog.Info("usage export read", "path", path, "rows", result.Rows, "bad_rows", result.BadRows)
	}

	return result, nil
}

// Read parses one export and appends its samples to the result. Rows
// that cannot be parsed are counted and skipped, a single malformed
// row must not fail an entire report.
func Read(r io.Reader, result *ReadResult) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read export header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range requiredColumns {
		if _, found := columns[required]; !found {
			return fmt.Errorf("export is missing required column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, found := columns[name]
		if !found || i >= len(record) {
			return ""
		}
		// FinOps exports mark absent values with a dash.
		if v := strings.TrimSpace(record[i]); v != "-" {
			return v
		}
		return ""
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read export row: %w", err)
		}
		result.Rows++

		timestamp, err := parseTimestamp(field(record, colTimestamp))
		if err != nil {
			result.BadRows++
			slog.Warn("skipping export row with bad timestamp", "row", result.Rows, "err", err.Error())
			continue
		}
		cpuPct, err := strconv.ParseFloat(field(record, colCPUPercent), 64)
		if err != nil {
			result.BadRows++
			slog.Warn("skipping export row with bad cpu percent", "row", result.Rows, "err", err.Error())
			continue
		}
		diskGB, err := strconv.ParseFloat(field(record, colDiskGB), 64)
		if err != nil {
			result.BadRows++
			slog.Warn("skipping export row with bad disk size", "row", result.Rows, "err", err.Error())
			continue
		}

		resourceID := field(record, colResourceID)

		result.Samples = append(result.Samples, carbonmeter.UsageSample{
			Timestamp:          timestamp,
			ResourceID:         resourceID,
			InstanceClass:      field(record, colInstanceSize),
			Region:             field(record, colRegion),
			GroupKey:           field(record, colPartition),
			CPUUtilizationPct:  cpuPct,
			StorageRequestedGB: diskGB,
			Duration:           sampleDuration,
		})

		if _, found := result.Meta[resourceID]; !found {
			result.Meta[resourceID] = Metadata{
				Name:         field(record, colName),
				Region:       field(record, colRegion),
				Subscription: field(record, colSubscription),
				InstanceSize: field(record, colInstanceSize),
				Service:      field(record, colService),
				Instance:     field(record, colInstance),
				Environment:  field(record, colEnvironment),
				Partition:    field(record, colPartition),
				Component:    field(record, colComponent),
			}
		}
	}
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}
