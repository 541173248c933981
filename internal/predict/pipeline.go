// Package predict orchestrates the per-batch flow: reconcile each record,
// score the batch once, then diagnose and escalate each result. Records in
// a batch are independent; their verdicts come back in input order.
package predict

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"voltguard/internal/classifier"
	"voltguard/internal/diagnose"
	"voltguard/internal/observe"
	"voltguard/internal/policy"
	"voltguard/internal/reconcile"
)

// Verdict is the caller-facing outcome for one record. Created once,
// serialized immediately, never mutated.
type Verdict struct {
	Status          string  `json:"status"`
	RiskLevel       string  `json:"risk_level"`
	Probability     float64 `json:"probability"`
	FailureCategory string  `json:"failure_category"`
	RootCause       string  `json:"root_cause"`
}

// Pipeline wires the reconciliation engine, scorer, diagnostic engine and
// escalation policy. All collaborators are read-only after construction.
type Pipeline struct {
	engine   *reconcile.Engine
	scorer   classifier.Scorer
	diag     *diagnose.Engine
	pol      *policy.Policy
	metrics  *observe.Metrics
	log      *slog.Logger
	parallel int
}

// New builds a pipeline. metrics may be nil; parallel <= 1 reconciles
// serially.
func New(engine *reconcile.Engine, scorer classifier.Scorer, diag *diagnose.Engine, pol *policy.Policy, metrics *observe.Metrics, log *slog.Logger, parallel int) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if parallel < 1 {
		parallel = 1
	}
	return &Pipeline{engine: engine, scorer: scorer, diag: diag, pol: pol, metrics: metrics, log: log, parallel: parallel}
}

// Predict processes a batch of raw records into verdicts, index for index.
// A scorer failure discards the whole batch: no partial verdicts.
func (p *Pipeline) Predict(ctx context.Context, records []reconcile.Record) ([]Verdict, error) {
	start := time.Now()
	now := start // one timestamp for the whole batch, so time-derived features agree

	vectors := make([]reconcile.Vector, len(records))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(p.parallel)
	for i, rec := range records {
		g.Go(func() error {
			vectors[i] = p.engine.ReconcileAt(rec, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if p.metrics != nil {
		for range records {
			p.metrics.RecordReconciled()
		}
	}

	probs, err := p.scorer.Score(ctx, vectors)
	if err != nil {
		return nil, fmt.Errorf("classifier failure: %w", err)
	}
	if len(probs) != len(records) {
		return nil, fmt.Errorf("classifier returned %d probabilities for %d records", len(probs), len(records))
	}

	var params *classifier.NormParams
	if pp, ok := p.scorer.(classifier.ParamsProvider); ok {
		np := pp.NormalizationParams()
		params = &np
	} else {
		p.log.Debug("scorer exposes no normalization params, diagnostics use advisory limits")
	}

	verdicts := make([]Verdict, len(records))
	for i, prob := range probs {
		decision := p.pol.Classify(prob, vectors[i])
		highRisk := decision.RiskLevel == policy.RiskHigh
		rootCause := p.diag.Explain(vectors[i], params, highRisk)
		verdicts[i] = Verdict{
			Status:          decision.Status,
			RiskLevel:       decision.RiskLevel,
			Probability:     round4(decision.Probability),
			FailureCategory: p.diag.Categorize(rootCause, highRisk),
			RootCause:       rootCause,
		}
		if p.metrics != nil {
			p.metrics.Verdict(decision.Status, decision.Overridden)
		}
	}

	if p.metrics != nil {
		p.metrics.ObserveBatch(time.Since(start).Seconds())
	}
	return verdicts, nil
}

// Engine exposes the reconciliation engine for callers that only need
// alignment (the explain tool).
func (p *Pipeline) Engine() *reconcile.Engine { return p.engine }

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
