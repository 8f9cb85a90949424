// Directrix - Real-Time Engagement Prediction and Content Adaptation
// Copyright 2026 Directrix Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/directrix-io/directrix

package policy

import (
	"sort"
	"sync"
	"time"

	"github.com/directrix-io/directrix/internal/models"
)

// upliftRanker orders candidate actions by observed engagement uplift
// for a variant. Outcome lookups are cached per variant because the
// aggregate snapshot is orders of magnitude slower than a decision
// cycle; staleness inside the TTL is acceptable.
type upliftRanker struct {
	source  UpliftSource
	ttl     time.Duration
	minObs  int64
	nowFunc func() time.Time

	mu    sync.Mutex
	cache map[string]cachedOutcomes
}

type cachedOutcomes struct {
	outcomes map[models.AdaptationAction]models.ActionOutcome
	fetched  time.Time
}

func newUpliftRanker(source UpliftSource, ttl time.Duration, minObs int64) *upliftRanker {
	return &upliftRanker{
		source:  source,
		ttl:     ttl,
		minObs:  minObs,
		nowFunc: time.Now,
		cache:   make(map[string]cachedOutcomes),
	}
}

// best returns the preferred action among candidates. When every
// candidate has enough observed outcomes the highest mean uplift wins,
// ties broken toward the less disruptive action. Otherwise the static
// order applies: lowest disruption cost first.
func (r *upliftRanker) best(variant string, candidates []models.AdaptationAction) models.AdaptationAction {
	if len(candidates) == 1 {
		return candidates[0]
	}

	ranked := make([]models.AdaptationAction, len(candidates))
	copy(ranked, candidates)

	outcomes := r.outcomes(variant)
	if sufficient(outcomes, candidates, r.minObs) {
		sort.SliceStable(ranked, func(i, j int) bool {
			oi, oj := outcomes[ranked[i]], outcomes[ranked[j]]
			if oi.MeanUplift != oj.MeanUplift {
				return oi.MeanUplift > oj.MeanUplift
			}
			return ranked[i].DisruptionCost() < ranked[j].DisruptionCost()
		})
	} else {
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].DisruptionCost() < ranked[j].DisruptionCost()
		})
	}
	return ranked[0]
}

func sufficient(outcomes map[models.AdaptationAction]models.ActionOutcome, candidates []models.AdaptationAction, minObs int64) bool {
	if outcomes == nil {
		return false
	}
	for _, c := range candidates {
		if outcomes[c].Observations < minObs {
			return false
		}
	}
	return true
}

func (r *upliftRanker) outcomes(variant string) map[models.AdaptationAction]models.ActionOutcome {
	if r.source == nil {
		return nil
	}

	now := r.nowFunc()
	r.mu.Lock()
	cached, ok := r.cache[variant]
	r.mu.Unlock()
	if ok && now.Sub(cached.fetched) < r.ttl {
		return cached.outcomes
	}

	outcomes := r.source.ActionOutcomes(variant)
	r.mu.Lock()
	r.cache[variant] = cachedOutcomes{outcomes: outcomes, fetched: now}
	r.mu.Unlock()
	return outcomes
}
