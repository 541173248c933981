package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"voltguard/internal/config"
	"voltguard/internal/reconcile"
)

var predictCmd = &cobra.Command{
	Use:   "predict [file]",
	Short: "Score telemetry records from a JSON file or stdin",
	Long: `Reads one JSON object or an array of objects, scores them, and prints
the verdicts as JSON in the same order. With no argument (or "-") input
is read from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPredict,
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	pipe, _, err := buildPipeline(cfg, nil)
	if err != nil {
		return err
	}

	var data []byte
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	records, single, err := decodeInput(data)
	if err != nil {
		return err
	}
	verdicts, err := pipe.Predict(cmd.Context(), records)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if single {
		return enc.Encode(verdicts[0])
	}
	return enc.Encode(verdicts)
}

// decodeInput accepts one record object or an array of them, mirroring the
// HTTP API's contract. Returns single=true for the object form.
func decodeInput(data []byte) ([]reconcile.Record, bool, error) {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, false, fmt.Errorf("parse input: %w", err)
	}
	switch payload := raw.(type) {
	case map[string]any:
		return []reconcile.Record{reconcile.CoerceRecord(payload)}, true, nil
	case []any:
		records := make([]reconcile.Record, 0, len(payload))
		for i, item := range payload {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, false, fmt.Errorf("element %d is not an object", i)
			}
			records = append(records, reconcile.CoerceRecord(obj))
		}
		return records, false, nil
	}
	return nil, false, fmt.Errorf("input must be a JSON object or array of objects")
}
