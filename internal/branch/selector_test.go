package branch

import (
	"context"
	"errors"
	"testing"

	"github.com/Stephani-e/food-delivery-app/internal/models"
	"github.com/Stephani-e/food-delivery-app/internal/remote"
)

// Victoria Island, Lagos.
var user = models.Coordinate{Latitude: 6.4281, Longitude: 3.4219}

func testBranches() []models.Branch {
	return []models.Branch{
		{
			ID: "ikeja", Country: "NG", City: "Lagos", Name: "Ikeja",
			Coordinate:       models.Coordinate{Latitude: 6.6018, Longitude: 3.3515},
			DeliveryRadiusKm: 25,
		},
		{
			ID: "lekki", Country: "NG", City: "Lagos", Name: "Lekki",
			Coordinate:       models.Coordinate{Latitude: 6.4478, Longitude: 3.4723},
			DeliveryRadiusKm: 25,
		},
		{
			ID: "abuja", Country: "NG", City: "Abuja", Name: "Wuse",
			Coordinate:       models.Coordinate{Latitude: 9.0765, Longitude: 7.3986},
			DeliveryRadiusKm: 25,
		},
	}
}

func TestRankBranchesEmptyInput(t *testing.T) {
	s := NewSelector(20, 60, 90)
	if _, err := s.RankBranches(nil, user); !errors.Is(err, ErrNoBranches) {
		t.Fatalf("expected ErrNoBranches, got %v", err)
	}
	if _, err := s.SelectBestBranch(nil, user); !errors.Is(err, ErrNoBranches) {
		t.Fatalf("expected ErrNoBranches from select, got %v", err)
	}
}

func TestRankBranchesDeliverability(t *testing.T) {
	s := NewSelector(20, 60, 90)
	ranked, err := s.RankBranches(testBranches(), user)
	if err != nil {
		t.Fatalf("RankBranches: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("expected all 3 branches ranked, got %d", len(ranked))
	}

	byID := make(map[string]models.RankedBranch, len(ranked))
	for _, b := range ranked {
		byID[b.ID] = b
	}

	// Lekki is a few km away: inside radius and under the ETA ceiling.
	if !byID["lekki"].Deliverable {
		t.Fatalf("expected lekki deliverable at %.1fkm", byID["lekki"].DistanceKm)
	}
	// Abuja is hundreds of km away: outside its radius.
	if byID["abuja"].Deliverable {
		t.Fatalf("expected abuja not deliverable at %.1fkm", byID["abuja"].DistanceKm)
	}
	if byID["abuja"].EtaMinutes <= byID["lekki"].EtaMinutes {
		t.Fatal("eta must grow with distance")
	}
}

func TestEtaCeilingUsesLargerLimit(t *testing.T) {
	// 8km at 20km/h is a 24 minute ETA. With ceilings 10 and 30 the
	// effective ceiling is 30, so the branch stays deliverable.
	s := NewSelector(20, 10, 30)
	branches := []models.Branch{{
		ID: "b", Country: "NG", Name: "B",
		Coordinate:       models.Coordinate{Latitude: 6.5, Longitude: 3.4219},
		DeliveryRadiusKm: 100,
	}}
	at := models.Coordinate{Latitude: 6.5719, Longitude: 3.4219} // ~8km due north

	ranked, err := s.RankBranches(branches, at)
	if err != nil {
		t.Fatalf("RankBranches: %v", err)
	}
	if !ranked[0].Deliverable {
		t.Fatalf("expected deliverable under the larger ceiling, eta %.1f", ranked[0].EtaMinutes)
	}

	// With both ceilings below 24 minutes it flips.
	strict := NewSelector(20, 10, 20)
	ranked, err = strict.RankBranches(branches, at)
	if err != nil {
		t.Fatalf("RankBranches: %v", err)
	}
	if ranked[0].Deliverable {
		t.Fatalf("expected not deliverable under ceiling 20, eta %.1f", ranked[0].EtaMinutes)
	}
}

func TestSelectBestBranchClosestWins(t *testing.T) {
	s := NewSelector(20, 60, 90)
	best, err := s.SelectBestBranch(testBranches(), user)
	if err != nil {
		t.Fatalf("SelectBestBranch: %v", err)
	}
	if best == nil {
		t.Fatal("expected a deliverable branch")
	}
	if best.ID != "lekki" {
		t.Fatalf("expected lekki as closest deliverable branch, got %s", best.ID)
	}
}

func TestSelectBestBranchNoneDeliverable(t *testing.T) {
	s := NewSelector(20, 60, 90)
	farAway := models.Coordinate{Latitude: -33.8688, Longitude: 151.2093} // Sydney
	best, err := s.SelectBestBranch(testBranches(), farAway)
	if err != nil {
		t.Fatalf("SelectBestBranch: %v", err)
	}
	if best != nil {
		t.Fatalf("expected nil when nothing can deliver, got %s", best.ID)
	}
}

func TestSelectBestBranchStableTieBreak(t *testing.T) {
	s := NewSelector(20, 60, 90)
	coord := models.Coordinate{Latitude: 6.5, Longitude: 3.4}
	twins := []models.Branch{
		{ID: "first", Coordinate: coord, DeliveryRadiusKm: 10},
		{ID: "second", Coordinate: coord, DeliveryRadiusKm: 10},
	}
	best, err := s.SelectBestBranch(twins, coord)
	if err != nil {
		t.Fatalf("SelectBestBranch: %v", err)
	}
	if best == nil || best.ID != "first" {
		t.Fatalf("expected input order to break the tie, got %+v", best)
	}
}

func TestRepositoryListByCountry(t *testing.T) {
	store := remote.NewMemoryStore()
	ctx := context.Background()

	rows := map[string]map[string]any{
		"ikeja": {
			"country": "NG", "city": "Lagos", "name": "Ikeja",
			"latitude": 6.6018, "longitude": 3.3515, "deliveryRadiusKm": 25.0,
		},
		"accra": {
			"country": "GH", "city": "Accra", "name": "Osu",
			"latitude": 5.5560, "longitude": -0.1969, "deliveryRadiusKm": 15.0,
		},
	}
	for id, fields := range rows {
		if _, err := store.CreateDocument(ctx, remote.CollectionBranches, id, fields); err != nil {
			t.Fatalf("seeding branch: %v", err)
		}
	}

	repo := NewRepository(store)
	branches, err := repo.ListByCountry(ctx, "NG")
	if err != nil {
		t.Fatalf("ListByCountry: %v", err)
	}
	if len(branches) != 1 {
		t.Fatalf("expected 1 NG branch, got %d", len(branches))
	}
	b := branches[0]
	if b.ID != "ikeja" || b.Name != "Ikeja" || b.DeliveryRadiusKm != 25 {
		t.Fatalf("decoded branch mismatch: %+v", b)
	}
	if b.Coordinate.Latitude != 6.6018 || b.Coordinate.Longitude != 3.3515 {
		t.Fatalf("decoded coordinate mismatch: %+v", b.Coordinate)
	}

	none, err := repo.ListByCountry(ctx, "KE")
	if err != nil {
		t.Fatalf("ListByCountry: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no KE branches, got %d", len(none))
	}
}
