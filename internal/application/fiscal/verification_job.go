package fiscal

import (
	"context"
	"errors"
	"fmt"
)

// ErrChainsBroken is returned by ChainVerificationJob when a chain fails
var ErrChainsBroken = errors.New("fiscal chains broken")

// ChainVerificationJob adapts VerifyAll to the background scheduler
type ChainVerificationJob struct {
	svc *VerificationService
}

// NewChainVerificationJob creates a ChainVerificationJob
func NewChainVerificationJob(svc *VerificationService) *ChainVerificationJob {
	return &ChainVerificationJob{svc: svc}
}

// Name identifies the job in logs
func (j *ChainVerificationJob) Name() string { return "fiscal_chain_verification" }

// Run verifies every chain. Broken chains make the run fail so the scheduler
// reports it; they were already logged by the service.
func (j *ChainVerificationJob) Run(ctx context.Context) error {
	reports, err := j.svc.VerifyAll(ctx)
	if err != nil {
		return err
	}
	if broken := BrokenChains(reports); len(broken) > 0 {
		return fmt.Errorf("%w: %d of %d", ErrChainsBroken, len(broken), len(reports))
	}
	return nil
}
