// Package classifier defines the scoring collaborator contract and the
// shipped standardize-then-logistic model. Training is out of scope: the
// model is an opaque artifact loaded at startup.
package classifier

import (
	"context"

	"voltguard/internal/reconcile"
)

// Scorer scores a batch of aligned vectors into failure probabilities,
// one value in [0,1] per vector, in input order.
type Scorer interface {
	Score(ctx context.Context, batch []reconcile.Vector) ([]float64, error)
}

// NormParams are the per-feature normalization parameters of the scorer's
// preprocessing stage, aligned with the manifest order. A Scale of zero
// means the feature had no observed variance; consumers treat it as 1.
type NormParams struct {
	Means  []float64
	Scales []float64
}

// ParamsProvider is implemented by scorers whose preprocessing can be
// introspected. When a scorer does not provide it, diagnostics degrade to
// the fixed-limit fallback.
type ParamsProvider interface {
	NormalizationParams() NormParams
}
