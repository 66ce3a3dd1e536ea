package runner

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"goldmap/internal/company"
)

// verifyLogos probes each matched mapping's logo with bounded concurrency and
// returns how many were checked and how many exist.
func verifyLogos(ctx context.Context, verifier LogoVerifier, mappings []company.Mapping, workers int) (int, int) {
	if workers < 1 {
		workers = 1
	}
	var (
		checked  int
		verified atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, m := range mappings {
		if m.Status != company.StatusMatched || m.ExternalID == nil {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		checked++
		externalID := *m.ExternalID
		g.Go(func() error {
			if verifier.VerifyLogo(gctx, externalID) {
				verified.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return checked, int(verified.Load())
}
