// forecastview-report computes dashboard views offline from a forecast CSV.
//
// Usage:
//
//	forecastview-report view --data forecast_output.csv [--bin A] [--risk High] [--start 2024-01-01] [--end 2024-01-31]
//	forecastview-report options --data forecast_output.csv
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/chrissnell/forecastview/internal/constants"
	"github.com/chrissnell/forecastview/internal/dataset"
	"github.com/chrissnell/forecastview/internal/forecast"
	"github.com/chrissnell/forecastview/internal/log"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "forecastview-report",
		Usage:   "Compute bin fill forecast views from a CSV file",
		Version: constants.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Path to the forecast CSV (timestamp, bin_id, forecast_fill)",
				EnvVars:  []string{"FORECASTVIEW_DATA"},
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Turn on debugging output",
			},
		},
		Before: func(c *cli.Context) error {
			return log.Init(c.Bool("debug"))
		},
		After: func(c *cli.Context) error {
			log.Sync()
			return nil
		},
		Commands: []*cli.Command{
			viewCommand(),
			optionsCommand(),
		},
	}
}

func loadDataset(c *cli.Context) (*forecast.Dataset, error) {
	loader := dataset.NewCSVLoader(c.String("data"), log.GetSugaredLogger())
	return loader.Load(context.Background())
}

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:  "view",
		Usage: "Filter the dataset and print KPIs and chart series",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bin", Value: forecast.AllSentinel, Usage: "Bin id to keep, or ALL"},
			&cli.StringFlag{Name: "risk", Value: forecast.AllSentinel, Usage: "Risk level to keep (Low, Medium, High), or ALL"},
			&cli.StringFlag{Name: "start", Usage: "First day to include (YYYY-MM-DD); defaults to the earliest day"},
			&cli.StringFlag{Name: "end", Usage: "Last day to include (YYYY-MM-DD); defaults to the latest day"},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "summary",
				Usage:   "Output format (summary, json)",
			},
		},
		Action: func(c *cli.Context) error {
			ds, err := loadDataset(c)
			if err != nil {
				return err
			}

			spec, err := forecast.ParseFilter(forecast.FilterParams{
				BinID:     c.String("bin"),
				RiskLevel: c.String("risk"),
				StartDate: c.String("start"),
				EndDate:   c.String("end"),
			}, ds.Options())
			if err != nil {
				return err
			}

			view := forecast.Compute(ds, spec)

			switch c.String("format") {
			case "json":
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			case "summary":
				return printSummary(c.App.Writer, view)
			}
			return fmt.Errorf("unknown format %q", c.String("format"))
		},
	}
}

func optionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "options",
		Usage: "Print the bins and date range available for filtering",
		Action: func(c *cli.Context) error {
			ds, err := loadDataset(c)
			if err != nil {
				return err
			}

			opts := ds.Options()
			fmt.Fprintf(c.App.Writer, "records: %d\n", ds.Len())
			fmt.Fprintf(c.App.Writer, "dates:   %s .. %s\n", opts.MinDateString(), opts.MaxDateString())
			fmt.Fprintf(c.App.Writer, "bins:    %v\n", opts.BinIDs)
			return nil
		},
	}
}

func printSummary(w io.Writer, view forecast.ViewResult) error {
	fmt.Fprintf(w, "Average forecast fill:  %.2f\n", view.AvgForecast)
	fmt.Fprintf(w, "High risk bins:         %d\n", view.HighRiskBins)
	fmt.Fprintf(w, "Last 24 rows average:   %.2f\n", view.Next24h)

	if view.Table.Empty {
		fmt.Fprintln(w, "\nNo data for selected filters.")
		return nil
	}

	fmt.Fprintln(w, "\nRisk distribution:")
	for _, rc := range view.RiskHistogram {
		fmt.Fprintf(w, "  %-6s %d\n", rc.Level, rc.Count)
	}

	fmt.Fprintln(w, "\nTop bins by mean fill:")
	for bin, mean := range view.Top5.All() {
		fmt.Fprintf(w, "  %-10s %.2f\n", bin, mean)
	}

	fmt.Fprintln(w, "\nDaily mean:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for day, mean := range view.DailyMean.All() {
		fmt.Fprintf(tw, "  %s\t%.2f\n", day, mean)
	}
	return tw.Flush()
}
