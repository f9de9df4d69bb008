package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/nurpe/policy-billing/internal/model"
	"github.com/nurpe/policy-billing/internal/service"
)

const DefaultCancellationSchedule = "15 0 * * *"

type SweepResult struct {
	Evaluated int
	Canceled  int
	Failed    int
}

// CancellationSweep evaluates every active policy for cancellation due to
// non-payment.
type CancellationSweep struct {
	accounting *service.AccountingService
	reason     string
	log        zerolog.Logger
}

func NewCancellationSweep(accounting *service.AccountingService, reason string, log zerolog.Logger) *CancellationSweep {
	return &CancellationSweep{
		accounting: accounting,
		reason:     reason,
		log:        log.With().Str("component", "cancellation_sweep").Logger(),
	}
}

// Run evaluates active policies as of asOf (today when zero). A policy that
// fails is counted and logged; the sweep moves on to the next one.
func (s *CancellationSweep) Run(ctx context.Context, asOf time.Time) (SweepResult, error) {
	var result SweepResult

	policies, err := s.accounting.ActivePolicies(ctx)
	if err != nil {
		return result, err
	}

	var reason *string
	if s.reason != "" {
		reason = &s.reason
	}

	for _, policy := range policies {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Evaluated++

		canceled, err := s.evaluate(ctx, policy, asOf, reason)
		if err != nil {
			result.Failed++
			s.log.Error().
				Err(err).
				Str("policy_number", policy.PolicyNumber).
				Msg("cancellation evaluation failed")
			continue
		}
		if canceled {
			result.Canceled++
		}
	}

	s.log.Info().
		Str("as_of", model.FormatDate(asOf)).
		Int("evaluated", result.Evaluated).
		Int("canceled", result.Canceled).
		Int("failed", result.Failed).
		Msg("cancellation sweep finished")
	return result, nil
}

func (s *CancellationSweep) evaluate(ctx context.Context, policy model.Policy, asOf time.Time, reason *string) (bool, error) {
	account, err := s.accounting.Open(ctx, policy.ID)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", policy.PolicyNumber, err)
	}
	return account.EvaluateCancellation(ctx, asOf, reason)
}

// Schedule registers the sweep on c. Each run evaluates as of the day it
// fires.
func (s *CancellationSweep) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	if spec == "" {
		spec = DefaultCancellationSchedule
	}
	id, err := c.AddFunc(spec, func() {
		if _, err := s.Run(context.Background(), time.Time{}); err != nil {
			s.log.Error().Err(err).Msg("cancellation sweep failed")
		}
	})
	if err != nil {
		return 0, fmt.Errorf("schedule cancellation sweep %q: %w", spec, err)
	}
	return id, nil
}
