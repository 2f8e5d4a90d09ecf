package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"hotel-metrics/internal/series"
)

const (
	metricOccupancy = "occupancy"
	metricEvents    = "events"
)

// Export runs a forecast pipeline and writes the merged series as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.Metric != metricOccupancy && opts.Metric != metricEvents {
		return fmt.Errorf("--metric must be %q or %q", metricOccupancy, metricEvents)
	}
	q, err := opts.query()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc, err := a.newService(store)
	if err != nil {
		return err
	}

	var points []series.Point
	if opts.Metric == metricOccupancy {
		points, err = svc.OccupancyForecast(ctx, q)
	} else {
		points, err = svc.EventForecast(ctx, q)
	}
	if err != nil {
		return err
	}
	if len(points) == 0 {
		a.Logger.Info().Str("metric", opts.Metric).Msg("no data found for export")
		return nil
	}
	a.Logger.Info().Str("metric", opts.Metric).Int("points", len(points)).Msg("exporting series")

	if opts.CSVPath != "" {
		if err := writeSeriesCSV(opts.CSVPath, points); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		yName := "Occupancy (%)"
		if opts.Metric == metricEvents {
			yName = "Bookings"
		}
		if err := writeSeriesPNG(opts.PNGPath, points, yName, a.Config.Export.MaxCategories); err != nil {
			return err
		}
	}

	return nil
}

func writeSeriesCSV(path string, points []series.Point) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"ds", "y", "category", "is_historical"}); err != nil {
		return err
	}
	for _, p := range points {
		record := []string{
			p.DS.Format("2006-01-02"),
			strconv.FormatFloat(p.Y, 'f', -1, 64),
			p.Category,
			strconv.FormatBool(p.IsHistorical),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

type chartLine struct {
	x []time.Time
	y []float64
}

// chartSeries splits points into one historical and one forecast line per
// category. The forecast line starts at the last historical point so the
// dashed segment joins the solid one.
func chartSeries(points []series.Point, maxCategories int) []chart.Series {
	history := make(map[string]*chartLine)
	projected := make(map[string]*chartLine)
	for _, p := range points {
		target := history
		if !p.IsHistorical {
			target = projected
		}
		line := target[p.Category]
		if line == nil {
			line = &chartLine{}
			target[p.Category] = line
		}
		line.x = append(line.x, p.DS)
		line.y = append(line.y, p.Y)
	}

	categories := make([]string, 0, len(history))
	for c := range history {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	if maxCategories > 0 && len(categories) > maxCategories {
		categories = categories[:maxCategories]
	}

	out := make([]chart.Series, 0, 2*len(categories))
	for i, c := range categories {
		name := c
		if name == "" {
			name = "all"
		}
		color := chart.GetDefaultColor(i)
		hist := history[c]
		if len(hist.x) < 2 {
			// go-chart needs two points to draw a line.
			hist.x = append(hist.x, hist.x[0])
			hist.y = append(hist.y, hist.y[0])
		}
		out = append(out, chart.TimeSeries{
			Name:    name,
			XValues: hist.x,
			YValues: hist.y,
			Style:   chart.Style{StrokeColor: color, StrokeWidth: 2},
		})

		if proj := projected[c]; proj != nil {
			last := len(hist.x) - 1
			out = append(out, chart.TimeSeries{
				Name:    name + " (forecast)",
				XValues: append([]time.Time{hist.x[last]}, proj.x...),
				YValues: append([]float64{hist.y[last]}, proj.y...),
				Style:   chart.Style{StrokeColor: color, StrokeWidth: 2, StrokeDashArray: []float64{5, 5}},
			})
		}
	}
	return out
}

func writeSeriesPNG(path string, points []series.Point, yName string, maxCategories int) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	lines := chartSeries(points, maxCategories)
	if len(lines) == 0 {
		return errors.New("nothing to chart")
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: yName,
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.1f")
			},
		},
		Series: lines,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
