package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/gocarina/gocsv"
	"github.com/rmrobinson/tnsw/services/transit"
	"github.com/rmrobinson/tnsw/services/transit/tripplanner"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
)

var routeFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "api-key",
		Usage:    "Transport for NSW open data API key",
		EnvVars:  []string{"NVS_TRANSPORTNSW_API_KEY"},
		Required: true,
	},
	&cli.StringFlag{
		Name:     "origin",
		Usage:    "origin stop ID",
		Required: true,
	},
	&cli.StringFlag{
		Name:     "destination",
		Usage:    "destination stop ID",
		Required: true,
	},
	&cli.DurationFlag{
		Name:  "timeout",
		Value: tripplanner.DefaultTimeout,
		Usage: "timeout for each request to the trip planner",
	},
	&cli.BoolFlag{
		Name:  "verbose",
		Usage: "log each request",
	},
}

func newClient(c *cli.Context) (*tripplanner.Client, error) {
	logger := zap.NewNop()
	if c.Bool("verbose") {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}

	return tripplanner.NewClient(logger, tripplanner.WithTimeout(c.Duration("timeout"))), nil
}

func tripCommand() *cli.Command {
	return &cli.Command{
		Name:  "trip",
		Usage: "show the next trip between two stops",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:  "wait",
				Usage: "only consider trips departing at least this many minutes from now",
			},
			&cli.BoolFlag{
				Name:  "dump",
				Usage: "dump the full trip record",
			},
		}, routeFlags...),
		Action: func(c *cli.Context) error {
			client, err := newClient(c)
			if err != nil {
				return err
			}

			trip, err := client.GetTrip(c.Context, c.String("origin"), c.String("destination"), c.String("api-key"), c.Int("wait"))
			if err != nil {
				return err
			}

			if c.Bool("dump") {
				spew.Fdump(c.App.Writer, trip)
				return nil
			}
			return writeTrips(c.App.Writer, []*tripplanner.Trip{trip}, formatTable)
		},
	}
}

func tripsCommand() *cli.Command {
	return &cli.Command{
		Name:  "trips",
		Usage: "show the next several trips between two stops",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:  "count",
				Value: 3,
				Usage: "number of trips to retrieve",
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Value: transit.DefaultMaxRetries,
				Usage: "number of times a failed fetch is retried",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: formatTable,
				Usage: "output format, one of table or csv",
			},
		}, routeFlags...),
		Action: func(c *cli.Context) error {
			if c.Int("count") < 1 {
				return cli.Exit("count must be at least 1", 1)
			}
			format := c.String("format")
			if !validFormat(format) {
				return cli.Exit(fmt.Sprintf("unknown format %q", format), 1)
			}

			client, err := newClient(c)
			if err != nil {
				return err
			}

			route := transit.RouteConfig{
				Name:              "tnswctl",
				StopID:            c.String("origin"),
				DestinationStopID: c.String("destination"),
				NumTrips:          c.Int("count"),
			}
			fetcher := transit.NewRetryingFetcher(zap.NewNop(), client, c.Int("max-retries"))

			trips, err := transit.FetchTrips(c.Context, fetcher, route, c.String("api-key"))
			if err != nil {
				return err
			}

			return writeTrips(c.App.Writer, trips, format)
		},
	}
}

func validFormat(format string) bool {
	return format == formatTable || format == formatCSV
}

// writeTrips renders the trips in the requested format.
func writeTrips(out io.Writer, trips []*tripplanner.Trip, format string) error {
	switch format {
	case formatCSV:
		return gocsv.Marshal(trips, out)
	case formatTable:
		return writeTable(out, trips)
	}
	return fmt.Errorf("unknown format %q", format)
}

func writeTable(out io.Writer, trips []*tripplanner.Trip) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DUE\tLINE\tTYPE\tFROM\tDEPARTS\tTO\tARRIVES\tCHANGES\tOCCUPANCY")
	for _, trip := range trips {
		fmt.Fprintf(w, "%d min\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			trip.Due,
			trip.OriginLineNameShort,
			trip.OriginTransportType,
			trip.OriginName,
			trip.DepartureTime,
			trip.DestinationName,
			trip.ArrivalTime,
			trip.Changes,
			trip.Occupancy,
		)
	}
	return w.Flush()
}

func main() {
	app := &cli.App{
		Name:  "tnswctl",
		Usage: "query the Transport for NSW trip planner",
		Commands: []*cli.Command{
			tripCommand(),
			tripsCommand(),
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
