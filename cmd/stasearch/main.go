// Copyright 2024 The stasearch Authors.
// Licensed under the MIT license. See license text in the LICENSE file.

// Command stasearch is a thin executable wrapping the stasearch
// library, a demonstration driver rather than a production sign-off
// tool. Its fixtures reproduce a pure combinational max-delay path and
// a transparent-latch path so `report-timing`/`report-wns-tns` have
// something concrete to print.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	sta "github.com/eda-tools/stasearch"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var fixtureName string
	var verbose bool

	root := &cobra.Command{
		Use:   "stasearch",
		Short: "Drive the stasearch timing search core against a toy fixture",
	}
	root.PersistentFlags().StringVar(&fixtureName, "fixture", "s1", "fixture to load: s1, s2")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newReportTimingCmd(&fixtureName, &verbose))
	root.AddCommand(newReportWNSTNSCmd(&fixtureName, &verbose))
	return root
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Str("session", uuid.NewString()).
		Timestamp().
		Logger()
}

func newReportTimingCmd(fixtureName *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "report-timing",
		Short: "Run a full arrival/required search and print the worst path endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*verbose)
			fx, err := loadFixture(*fixtureName, logger)
			if err != nil {
				return err
			}
			if err := runFixtureSearch(fx); err != nil {
				return err
			}
			ends := fx.search.FindPathEnds(sta.PathEndOptions{NWorst: 10})
			for _, pe := range ends {
				fmt.Printf("endpoint=%-8s group=%-8s arrival=%.3f required=%.3f slack=%.3f\n",
					pe.Endpoint.Pin().Name(), pe.PathGroup, float64(pe.Arrival), float64(pe.Required), float64(pe.Slack))
			}
			for _, w := range fx.sdcObj.Warnings() {
				logger.Warn().Msg(w)
			}
			return nil
		},
	}
}

func newReportWNSTNSCmd(fixtureName *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "report-wns-tns",
		Short: "Run a full arrival/required search and print WNS/TNS",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*verbose)
			fx, err := loadFixture(*fixtureName, logger)
			if err != nil {
				return err
			}
			if err := runFixtureSearch(fx); err != nil {
				return err
			}
			tracker := sta.NewSlackTracker(fx.search)
			tracker.Recompute()
			wns, ok := tracker.WNS()
			if !ok {
				fmt.Println("wns=<none> (no endpoints with requireds)")
			} else {
				fmt.Printf("wns=%.3f tns=%.3f\n", float64(wns), float64(tracker.TNS()))
			}
			return nil
		},
	}
}

func runFixtureSearch(fx *fixture) error {
	if _, err := fx.search.FindArrivals(); err != nil {
		return err
	}
	fx.search.DiscoverEndpoints()
	if err := fx.search.FindRequireds(); err != nil {
		return err
	}
	return nil
}
