package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
)

func printReport(out io.Writer, r report, cfg config) error {
	_, _ = fmt.Fprintf(out, "Load test summary: mode=%s run=%s duration=%.2fs rps=%.2f rejected=%d\n",
		cfg.mode, runTarget(cfg), r.DurationSeconds, r.RPS, r.RejectedOrders)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "series\ttotal\tok\tfailed\terror_rate\tp50_ms\tp95_ms\tp99_ms\tmax_ms")
	rows := []struct {
		name string
		data seriesReport
	}{
		{"scenario", r.Scenarios},
		{methodValidate, r.Calls},
	}
	for _, row := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.4f\t%.2f\t%.2f\t%.2f\t%.2f\n",
			row.name, row.data.Total, row.data.OK, row.data.Failed, row.data.ErrorRate,
			row.data.LatencyMs.P50, row.data.LatencyMs.P95, row.data.LatencyMs.P99, row.data.LatencyMs.Max)
	}
	return tw.Flush()
}

func runTarget(cfg config) string {
	switch {
	case cfg.duration <= 0:
		return fmt.Sprintf("count:%d", cfg.scenarios)
	case cfg.scenariosSet:
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.scenarios)
	default:
		return fmt.Sprintf("duration:%s", cfg.duration)
	}
}

// writeReport пишет отчёт в файл. Относительный путь не может выходить за текущий каталог.
func writeReport(path string, r report) error {
	clean := filepath.Clean(path)
	if !filepath.IsAbs(clean) && !filepath.IsLocal(clean) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	// #nosec G306 -- load-test reports are not secret.
	return os.WriteFile(clean, append(data, '\n'), 0o644)
}
