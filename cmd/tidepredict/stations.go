package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ngmaloney/tide-terminal/internal/database"
	"github.com/ngmaloney/tide-terminal/internal/geocoding"
	"github.com/ngmaloney/tide-terminal/internal/stations"
	"github.com/ngmaloney/tide-terminal/internal/zonelookup"
)

func genharmCommand(a *app) *cobra.Command {
	var (
		location string
		refresh  bool
	)
	cmd := &cobra.Command{
		Use:   "genharm",
		Short: "Fit harmonic constants for a station from its last two years of hourly data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if location == "" {
				return fmt.Errorf("must enter a location (-l)")
			}
			st, err := a.station(cmd.Context(), location, refresh)
			if err != nil {
				return err
			}
			rec, err := a.svc.GenerateHarmonics(cmd.Context(), st)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d constituents for %s (%s), time zone %s\n",
				len(rec.Cons), rec.Name, st.Code, rec.TZone)
			return nil
		},
	}
	cmd.Flags().StringVarP(&location, "location", "l", "", "Station name or code")
	cmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "Force refresh of the station database")
	return cmd
}

func listCommand(a *app) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every UHSLC station",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.EnsureStations(cmd.Context(), refresh, nil); err != nil {
				return err
			}
			all, err := a.svc.Stations()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, st := range all {
				fmt.Fprintf(w, "%-6s %18s %16s %8.3f %8.3f\n", st.Code, st.Name, st.Country, st.Latitude, st.Longitude)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "Force refresh of the station database")
	return cmd
}

func nearestCommand(a *app) *cobra.Command {
	var (
		lat, lon, radius float64
		place            string
	)
	cmd := &cobra.Command{
		Use:   "nearest",
		Short: "List stations near a position or a named place",
		Example: `  tidepredict nearest --lat -43.6 --lon 172.7
  tidepredict nearest --place "Christchurch, New Zealand" --radius 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if place == "" && !(cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon")) {
				return fmt.Errorf("give --place or both --lat and --lon")
			}
			if err := a.svc.EnsureStations(cmd.Context(), false, nil); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			var (
				near []stations.StationDistance
				err  error
			)
			if place != "" {
				var loc *geocoding.Location
				loc, near, err = a.svc.NearPlace(cmd.Context(), place, radius)
				if err == nil {
					fmt.Fprintf(w, "Stations near %s (%.3f, %.3f)\n", loc.Name, loc.Latitude, loc.Longitude)
				}
			} else {
				near, err = a.svc.Nearest(lat, lon, radius)
			}
			if err != nil {
				return err
			}

			if len(near) == 0 {
				fmt.Fprintf(w, "No stations within %.0f km\n", radius)
				return nil
			}
			for _, sd := range near {
				fmt.Fprintf(w, "%-6s %-24s %-16s %7.1f km\n", sd.Code, sd.Name, sd.Country, sd.Distance)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude in decimal degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude in decimal degrees")
	cmd.Flags().StringVar(&place, "place", "", "Place name to geocode, e.g. \"Christchurch, New Zealand\"")
	cmd.Flags().Float64Var(&radius, "radius", 200, "Search radius in km")
	return cmd
}

func historyCommand(a *app) *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past harmonic fits of a station",
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := a.resolveCode(cmd.Context(), location, false)
			if err != nil {
				return err
			}
			fits, err := database.FitHistory(a.db, code)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(fits) == 0 {
				fmt.Fprintf(w, "No fits recorded for %s\n", code)
				return nil
			}
			for _, f := range fits {
				fmt.Fprintf(w, "%s  years %s  %6d obs  %2d constituents  rms %.4f m\n",
					f.FittedAt.Format("2006-01-02 15:04"), f.Years, f.Observations, f.Constituents, f.RMSResidual)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&location, "location", "l", "", "Station name or code")
	cmd.MarkFlagRequired("location")
	return cmd
}

func zonesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "zones",
		Short: "Download time zone boundaries used to pick station time zones",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := zonelookup.ProvisionDatabase(cmd.Context(), a.db, a.cfg.DataDir, a.cfg.TZBoundaryURL, a.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Time zone boundaries stored")
			return nil
		},
	}
}
