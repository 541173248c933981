package main

import (
	"fmt"

	"voltguard/internal/classifier"
	"voltguard/internal/config"
	"voltguard/internal/diagnose"
	"voltguard/internal/logging"
	"voltguard/internal/manifest"
	"voltguard/internal/observe"
	"voltguard/internal/policy"
	"voltguard/internal/predict"
	"voltguard/internal/reconcile"
)

// buildPipeline loads the manifest, alias table and model artifact named by
// the config and assembles the scoring pipeline around them.
func buildPipeline(cfg config.Config, metrics *observe.Metrics) (*predict.Pipeline, *manifest.Manifest, error) {
	man, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load manifest: %w", err)
	}
	aliases, err := manifest.LoadAliases(cfg.AliasesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load aliases: %w", err)
	}
	model, err := classifier.LoadModel(cfg.ModelPath, man)
	if err != nil {
		return nil, nil, fmt.Errorf("load model: %w", err)
	}

	var obs reconcile.Observer
	if metrics != nil {
		obs = metrics
	}
	engine := reconcile.NewEngine(man, aliases, cfg.Reconcile, obs, logging.New("reconcile"))
	diag := diagnose.NewEngine(cfg.Diagnose, logging.New("diagnose"))
	pol := policy.New(cfg.Policy, logging.New("policy"))

	pipe := predict.New(engine, model, diag, pol, metrics, logging.New("predict"), cfg.Parallel)
	return pipe, man, nil
}
