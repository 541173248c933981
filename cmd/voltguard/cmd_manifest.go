package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"voltguard/internal/config"
	"voltguard/internal/manifest"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print the feature manifest the classifier requires",
	RunE:  runManifest,
}

func runManifest(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	man, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tROLE\tWINDOW\tBASE")
	for i, d := range man.Features() {
		window := "-"
		if d.Window != "" {
			window = d.Window
		}
		base := "-"
		if d.BaseSignal != "" {
			base = d.BaseSignal
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i, d.Name, d.Role, window, base)
	}
	return w.Flush()
}
