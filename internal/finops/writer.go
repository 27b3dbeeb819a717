package finops

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	carbonmeter "github.com/greenops/carbonmeter"
	"github.com/greenops/carbonmeter/model/carbon"
)

var reportHeader = []string{
	"Date",
	"ResourceType",
	"ResourceId",
	"Name",
	"Region",
	"Subscription",
	"EnergyKWh",
	"OperationalCarbonG",
	"EmbodiedCarbonG",
	"TotalCarbonG",
	"GridCarbonIntensity",
	"InstanceSize",
	"Service",
	"Instance",
	"Environment",
	"Partition",
	"Component",
}

// ReportRow is one line of the daily carbon report: the horizon totals
// of one resource plus its pass-through metadata.
type ReportRow struct {
	Date          string
	ResourceType  string
	ResourceID    string
	Meta          Metadata
	EnergyKWh     float64
	OperationalG  float64
	EmbodiedG     float64
	TotalG        float64
	GridIntensity float64
}

// BuildRows turns per-resource reports into report rows. Reports are
// expected to be grouped by resource id.
func BuildRows(date time.Time, reports []carbonmeter.Report, meta map[string]Metadata, intensity carbon.IntensityMap) []ReportRow {
	rows := make([]ReportRow, 0, len(reports))
	for _, report := range reports {
		m := meta[report.Group]

		// The intensity actually applied during the run; regions
		// resolved through the global fallback report that value.
		gramsPerKWh, err := intensity.Get(m.Region)
		if err != nil {
			gramsPerKWh = 0
		}

		rows = append(rows, ReportRow{
			Date:          date.Format("2006-01-02"),
			ResourceType:  "VM",
			ResourceID:    report.Group,
			Meta:          m,
			EnergyKWh:     report.Totals.EnergyKWh,
			OperationalG:  report.Totals.OperationalG,
			EmbodiedG:     report.Totals.EmbodiedG,
			TotalG:        report.Totals.TotalG,
			GridIntensity: gramsPerKWh,
		})
	}
	return rows
}

// WriteReport writes the daily report CSV.
func WriteReport(w io.Writer, rows []ReportRow) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(reportHeader); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Date,
			row.ResourceType,
			row.ResourceID,
			row.Meta.Name,
			row.Meta.Region,
			row.Meta.Subscription,
			formatFloat(row.EnergyKWh),
			formatFloat(row.OperationalG),
			formatFloat(row.EmbodiedG),
			formatFloat(row.TotalG),
			formatFloat(row.GridIntensity),
			row.Meta.InstanceSize,
			row.Meta.Service,
			row.Meta.Instance,
			row.Meta.Environment,
			row.Meta.Partition,
			row.Meta.Component,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
