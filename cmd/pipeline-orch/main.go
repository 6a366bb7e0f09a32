package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "pipeline-orch",
		Short: "Pipeline Orchestrator - Autonomous sales outreach manager",
		Long: `Pipeline Orchestrator coordinates automated sales outreach. It drafts and
sends outreach emails, runs bounded follow-up cadences, classifies inbound
replies, and moves prospects through the pipeline stages, all driven by a
durable task queue.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
