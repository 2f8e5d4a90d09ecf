package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"hotel-metrics/internal/metrics"
	"hotel-metrics/internal/storage"
)

// Report prints every sales line per period.
func (a *App) Report(ctx context.Context, opts ReportOptions) error {
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

	report, err := svc.SalesReport(ctx, q)
	if err != nil {
		return err
	}
	return writeReport(os.Stdout, report)
}

func writeReport(out io.Writer, report map[storage.SalesLine][]metrics.AggregatePoint) error {
	byPeriod := make(map[metrics.PeriodKey]map[storage.SalesLine]float64)
	for line, points := range report {
		for _, p := range points {
			if byPeriod[p.Period] == nil {
				byPeriod[p.Period] = make(map[storage.SalesLine]float64)
			}
			byPeriod[p.Period][line] += p.Value
		}
	}
	if len(byPeriod) == 0 {
		_, err := fmt.Fprintln(out, "no sales found")
		return err
	}

	periods := make([]metrics.PeriodKey, 0, len(byPeriod))
	for p := range byPeriod {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i] < periods[j] })

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(writer, "Period\tRooms\tEvents\tRestaurant\tBar\tTotal\t")

	for _, period := range periods {
		row := byPeriod[period]
		total := decimal.Zero
		fmt.Fprintf(writer, "%s\t", period)
		for _, line := range storage.SalesLines {
			v := decimal.NewFromFloat(row[line])
			total = total.Add(v)
			fmt.Fprintf(writer, "%s\t", v.StringFixed(2))
		}
		fmt.Fprintf(writer, "%s\t\n", total.StringFixed(2))
	}

	return writer.Flush()
}
