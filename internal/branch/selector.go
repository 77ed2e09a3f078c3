// Package branch ranks fulfillment branches by deliverability for a user
// coordinate and picks the branch the cart should be scoped to.
package branch

import (
	"errors"
	"sort"

	"github.com/Stephani-e/food-delivery-app/internal/geo"
	"github.com/Stephani-e/food-delivery-app/internal/models"
)

// ErrNoBranches signals a contract violation: branch selection was called
// with an empty candidate set. An empty set is an upstream data problem,
// distinct from "no deliverable branch among valid candidates".
var ErrNoBranches = errors.New("branch selection requires a non-empty candidate list")

// Selector holds the delivery tuning.
type Selector struct {
	avgSpeedKmh   float64
	maxEtaMinutes float64
}

// NewSelector builds a selector from the configured delivery constants.
// The two configured ceilings collapse into one effective ceiling (the
// larger); checking both with OR made the stricter one dead.
func NewSelector(avgSpeedKmh, maxDeliveryMinutes, maxBadConditionMinutes float64) *Selector {
	maxEta := maxDeliveryMinutes
	if maxBadConditionMinutes > maxEta {
		maxEta = maxBadConditionMinutes
	}
	return &Selector{avgSpeedKmh: avgSpeedKmh, maxEtaMinutes: maxEta}
}

// RankBranches computes distance, ETA and deliverability for each branch
// against the user coordinate. A branch is deliverable when it is within
// its own radius and the ETA ceiling.
func (s *Selector) RankBranches(branches []models.Branch, user models.Coordinate) ([]models.RankedBranch, error) {
	if len(branches) == 0 {
		return nil, ErrNoBranches
	}

	ranked := make([]models.RankedBranch, 0, len(branches))
	for _, b := range branches {
		distanceKm := geo.DistanceKm(user, b.Coordinate)
		etaMinutes := geo.EtaMinutes(distanceKm, s.avgSpeedKmh)
		ranked = append(ranked, models.RankedBranch{
			Branch:      b,
			DistanceKm:  distanceKm,
			EtaMinutes:  etaMinutes,
			Deliverable: distanceKm <= b.DeliveryRadiusKm && etaMinutes <= s.maxEtaMinutes,
		})
	}
	return ranked, nil
}

// SelectBestBranch returns the closest deliverable branch, or nil when
// none can deliver. Equidistant branches tie-break by input order.
func (s *Selector) SelectBestBranch(branches []models.Branch, user models.Coordinate) (*models.RankedBranch, error) {
	ranked, err := s.RankBranches(branches, user)
	if err != nil {
		return nil, err
	}

	deliverable := ranked[:0:0]
	for _, b := range ranked {
		if b.Deliverable {
			deliverable = append(deliverable, b)
		}
	}
	if len(deliverable) == 0 {
		return nil, nil
	}

	sort.SliceStable(deliverable, func(i, j int) bool {
		return deliverable[i].DistanceKm < deliverable[j].DistanceKm
	})

	best := deliverable[0]
	return &best, nil
}
