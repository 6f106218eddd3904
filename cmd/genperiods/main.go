/*
main.go - Pay period generation command

PURPOSE:
  Generates and saves the configured payroll frequency's pay periods for
  a range relative to today. Existing periods are never duplicated, so the
  command is safe to run from cron or a deploy hook.

RANGES (first match wins):
  -current-month   the current calendar month
  -weeks N         start of the current week through the end of the week N weeks ahead
  -months N        start of the current month through the end of the month N months ahead (default 1)

CONFIGURATION:
  Same environment as the server (config/config.go). FREQUENCY_FILE or
  -frequency is required.

EXAMPLES:
  ./genperiods -frequency=frequency.json -months=3
  ./genperiods -frequency=frequency.json -current-month
  ./genperiods -db=":memory:" -frequency=frequency.json -weeks=6
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/logging"
	"github.com/warp/payroll-engine/store/sqlite"
)

// rangeOptions selects the generated range.
type rangeOptions struct {
	currentMonth bool
	weeks        int
	months       int
}

// generationRange resolves the options against today.
func generationRange(today generic.Date, opts rangeOptions) (start, end generic.Date) {
	switch {
	case opts.currentMonth:
		return today.StartOfMonth(), today.EndOfMonth()
	case opts.weeks > 0:
		start = today.StartOfWeek(time.Monday)
		return start, start.AddDays(7*opts.weeks + 6)
	default:
		months := opts.months
		if months < 0 {
			months = 0
		}
		start = today.StartOfMonth()
		return start, start.AddMonths(months).EndOfMonth()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	driver := flag.String("driver", cfg.DatabaseDriver, "Database driver (sqlite3 or postgres)")
	dsn := flag.String("db", cfg.DatabaseURL, "SQLite database path or postgres DSN")
	frequencyFile := flag.String("frequency", cfg.FrequencyFile, "Payroll frequency JSON file")
	var opts rangeOptions
	flag.BoolVar(&opts.currentMonth, "current-month", false, "Generate only the current month")
	flag.IntVar(&opts.weeks, "weeks", 0, "Weeks ahead from the current week")
	flag.IntVar(&opts.months, "months", 1, "Months ahead from the current month")
	flag.Parse()

	log := logging.New(cfg.LogLevel, cfg.Environment)
	if *frequencyFile == "" {
		log.Fatal("no frequency configured: set FREQUENCY_FILE or -frequency")
	}

	freq, err := factory.NewFactory().LoadFrequencyFile(*frequencyFile)
	if err != nil {
		log.WithError(err).Fatal("failed to load frequency")
	}

	store, err := sqlite.Open(*driver, *dsn)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	start, end := generationRange(generic.Today(), opts)
	log.WithFields(logrus.Fields{"start": start.String(), "end": end.String()}).Info("generating pay periods")

	gen := calendar.NewGenerator(calendar.WithLogger(log))
	created, err := gen.CreateAndSave(context.Background(), store, freq, start, end)
	if err != nil {
		log.WithError(err).Error("failed to generate pay periods")
		store.Close()
		os.Exit(1)
	}
	printPeriods(os.Stdout, created)
}

func printPeriods(out io.Writer, periods []generic.PayPeriod) {
	if len(periods) == 0 {
		fmt.Fprintln(out, "No new pay periods needed, all periods already exist")
		return
	}
	fmt.Fprintf(out, "Created %d new pay periods\n", len(periods))
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTART\tEND\tPAY DATE\tDAYS")
	for _, p := range periods {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", p.Name, p.Start, p.End, p.PayDate, p.Period().Length())
	}
	tw.Flush()
}
