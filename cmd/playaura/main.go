package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "playaura",
		Short:         "Rank rising YouTube creators by hot score",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(collectCmd())
	root.AddCommand(rankCmd())
	root.AddCommand(graphCmd())
	root.AddCommand(classifyCmd())
	root.AddCommand(boostCmd())
	root.AddCommand(demoCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func collectCmd() *cobra.Command {
	var (
		regions    []string
		categories []string
		history    int
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Sync channel telemetry from YouTube",
		RunE: func(cmd *cobra.Command, args []string) error {
			if history > 0 {
				return runSyncHistory(cmd.Context(), history)
			}
			return runCollect(cmd.Context(), regions, categories)
		},
	}

	cmd.Flags().StringSliceVar(&regions, "region", nil, "regions to sync (e.g., US,KR)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "categories to sync (e.g., gaming,tech)")
	cmd.Flags().IntVar(&history, "history", 0, "show the last N sync runs instead of collecting")
	return cmd
}

func boostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "boost <creator-id> <factor>",
		Short: "Set a creator's manual hot score multiplier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			factor, err := parseBoost(args[1])
			if err != nil {
				return err
			}
			return runBoost(cmd.Context(), args[0], factor)
		},
	}
}

func rankCmd() *cobra.Command {
	var (
		opts       rankOptions
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Show the ranked creator list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd.Context(), opts, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	opts.bind(cmd, 20)
	return cmd
}

func graphCmd() *cobra.Command {
	var (
		opts     rankOptions
		ticks    int
		seed     uint64
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Lay out the creator graph and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return runGraphWatch(cmd.Context(), opts, interval, seed, cmd.Flags().Changed("seed"))
			}
			return runGraph(cmd.Context(), opts, ticks, seed, cmd.Flags().Changed("seed"))
		},
	}

	cmd.Flags().IntVar(&ticks, "ticks", 0, "relaxation steps (default: from config)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for the initial jitter (default: from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "stream node positions as NDJSON, one frame per tick, until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", time.Second/60, "tick interval for --watch")
	opts.bind(cmd, 0)
	return cmd
}

func classifyCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Show corporate filter verdicts with the signals that fired",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd.Context(), all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include channels that pass the filter")
	return cmd
}

func demoCmd() *cobra.Command {
	var (
		seed   uint64
		rounds int
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Re-rank with simulated telemetry refreshes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), seed, rounds, limit)
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().IntVar(&rounds, "rounds", 3, "number of refresh rounds")
	cmd.Flags().IntVar(&limit, "limit", 10, "creators shown per round")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
