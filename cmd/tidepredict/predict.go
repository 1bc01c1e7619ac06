package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ngmaloney/tide-terminal/internal/predictor"
	"github.com/ngmaloney/tide-terminal/internal/report"
	"github.com/ngmaloney/tide-terminal/internal/stations"
)

func predictCommand(a *app) *cobra.Command {
	var (
		location, begin, end, format string
		all, genharm, refresh        bool
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Print high and low tides for a station",
		Example: `  tidepredict predict -l Lyttelton
  tidepredict predict -l h551a -b "2025-03-16 00:00" -e "2025-03-18 00:00" -f c
  tidepredict predict --all -f j`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if all {
				return a.predictAll(cmd.Context(), out, f, begin, end)
			}
			if location == "" {
				return errors.New("must enter a location (-l) or use --all")
			}

			code, err := a.resolveCode(cmd.Context(), location, refresh)
			if err != nil {
				return err
			}
			if genharm {
				if err := a.generate(cmd.Context(), code); err != nil {
					return err
				}
			}
			p, err := a.svc.Predict(code, begin, end)
			if errors.Is(err, predictor.ErrNoHarmonics) {
				return fmt.Errorf("harmonics data not found for %s; use genharm to generate harmonics for this location", location)
			}
			if err != nil {
				return err
			}
			return report.Write(out, f, p.Data, p.Location)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&location, "location", "l", "", "Station name or code")
	flags.StringVarP(&begin, "begin", "b", "", "Start time in station local time (YYYY-MM-DD HH:MM, default now)")
	flags.StringVarP(&end, "end", "e", "", "End time in station local time (YYYY-MM-DD HH:MM, default start + 72h)")
	flags.StringVarP(&format, "format", "f", "t", "Output format: t (text), c (csv) or j (json)")
	flags.BoolVar(&all, "all", false, "Predict for every station with stored harmonics")
	flags.BoolVar(&genharm, "genharm", false, "Generate harmonics before predicting")
	flags.BoolVarP(&refresh, "refresh", "r", false, "Force refresh of the station database")
	return cmd
}

func (a *app) predictAll(ctx context.Context, w io.Writer, f report.Format, begin, end string) error {
	preds, err := a.svc.PredictAll(ctx, begin, end)
	if err != nil {
		return err
	}
	for i, p := range preds {
		if f == report.FormatPlain {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s (%s)\n", p.Data.StationName, p.Data.StationCode)
		}
		if err := report.Write(w, f, p.Data, p.Location); err != nil {
			return err
		}
	}
	return nil
}

// resolveCode maps a location to a station code. Stations with stored
// harmonics are matched first so predictions work offline; otherwise the
// station database is searched, downloading it when needed.
func (a *app) resolveCode(ctx context.Context, location string, refresh bool) (string, error) {
	if !refresh {
		h, err := a.svc.Harmonics()
		if err != nil {
			return "", err
		}
		q := strings.ToLower(strings.TrimSpace(location))
		if _, ok := h[q]; ok {
			return q, nil
		}
		var matches []string
		for _, code := range h.Codes() {
			if strings.Contains(strings.ToLower(h[code].Name), q) {
				matches = append(matches, code)
			}
		}
		if len(matches) == 1 {
			return matches[0], nil
		}
	}

	st, err := a.station(ctx, location, refresh)
	if err != nil {
		return "", err
	}
	return st.Code, nil
}

func (a *app) station(ctx context.Context, location string, refresh bool) (*stations.Station, error) {
	if err := a.svc.EnsureStations(ctx, refresh, nil); err != nil {
		return nil, err
	}
	st, err := a.svc.FindStation(location)
	if errors.Is(err, stations.ErrStationNotFound) {
		return nil, fmt.Errorf("station not found: %s", location)
	}
	return st, err
}

func (a *app) generate(ctx context.Context, code string) error {
	st, err := a.station(ctx, code, false)
	if err != nil {
		return err
	}
	_, err = a.svc.GenerateHarmonics(ctx, st)
	return err
}
