package availability

import (
	"context"
	"testing"
	"time"

	"github.com/plateful/plateful/app/models"
	"github.com/plateful/plateful/internal/pkg/pos"
)

type fakeMenuRepo struct {
	knownItems map[string]bool
	flips      map[string]bool
	replaced   []models.Menu
}

func newFakeMenuRepo(known ...string) *fakeMenuRepo {
	r := &fakeMenuRepo{knownItems: map[string]bool{}, flips: map[string]bool{}}
	for _, id := range known {
		r.knownItems[id] = true
	}
	return r
}

func (r *fakeMenuRepo) GetActiveMenus(string) ([]models.Menu, error) { return nil, nil }
func (r *fakeMenuRepo) GetItemByExternalID(string, string) (*models.MenuItem, error) {
	return nil, nil
}

func (r *fakeMenuRepo) SetItemAvailability(_, externalID string, available bool, _ time.Time) (bool, error) {
	if !r.knownItems[externalID] {
		return false, nil
	}
	r.flips[externalID] = available
	return true, nil
}

func (r *fakeMenuRepo) SetAllAvailability(string, map[string]bool, time.Time) (int, error) {
	return 0, nil
}

func (r *fakeMenuRepo) ReplaceCatalog(_ string, menus []models.Menu) error {
	r.replaced = menus
	return nil
}

func (r *fakeMenuRepo) GetItemsByIDs(string, []uint) ([]models.MenuItem, error) { return nil, nil }

type fakeProfileRepo struct {
	profile *models.RestaurantProfile
}

func (r *fakeProfileRepo) Create(*models.RestaurantProfile) error { return nil }
func (r *fakeProfileRepo) GetByTenantID(string) (*models.RestaurantProfile, error) {
	return r.profile, nil
}
func (r *fakeProfileRepo) GetByAPIKey(string) (*models.RestaurantProfile, error) {
	return r.profile, nil
}
func (r *fakeProfileRepo) Update(*models.RestaurantProfile) error { return nil }
func (r *fakeProfileRepo) ListWithPOS() ([]models.RestaurantProfile, error) {
	return []models.RestaurantProfile{*r.profile}, nil
}

func testEngine(menus *fakeMenuRepo, profiles *fakeProfileRepo, adapters ...pos.Adapter) (*Engine, *[]string) {
	e := NewEngine(menus, profiles, pos.NewRegistry(adapters...), pos.NewSessionCache())
	var deleted []string
	e.cacheDelete = func(key string) error {
		deleted = append(deleted, key)
		return nil
	}
	return e, &deleted
}

func TestHandleAvailabilityChanged(t *testing.T) {
	menus := newFakeMenuRepo("item-omelet", "item-club")
	e, deleted := testEngine(menus, &fakeProfileRepo{})

	changes := []pos.AvailabilityChange{
		{ItemExternalID: "item-omelet", IsAvailable: false},
		{ItemExternalID: "item-unknown", IsAvailable: false},
		{ItemExternalID: "item-club", IsAvailable: true},
	}
	if err := e.HandleAvailabilityChanged(context.Background(), "tenant-1", changes); err != nil {
		t.Fatalf("HandleAvailabilityChanged failed: %v", err)
	}

	if got, ok := menus.flips["item-omelet"]; !ok || got {
		t.Fatalf("expected item-omelet flipped unavailable, got flips=%v", menus.flips)
	}
	if got, ok := menus.flips["item-club"]; !ok || !got {
		t.Fatalf("expected item-club flipped available, got flips=%v", menus.flips)
	}
	if _, ok := menus.flips["item-unknown"]; ok {
		t.Fatalf("unknown item should be skipped, got flips=%v", menus.flips)
	}
	if len(*deleted) != 1 || (*deleted)[0] != MenuCacheKey("tenant-1") {
		t.Fatalf("expected one cache invalidation for tenant-1, got %v", *deleted)
	}
}

func TestHandleAvailabilityChangedNoMatches(t *testing.T) {
	menus := newFakeMenuRepo()
	e, deleted := testEngine(menus, &fakeProfileRepo{})

	changes := []pos.AvailabilityChange{{ItemExternalID: "item-ghost", IsAvailable: false}}
	if err := e.HandleAvailabilityChanged(context.Background(), "tenant-1", changes); err != nil {
		t.Fatalf("HandleAvailabilityChanged failed: %v", err)
	}
	if len(*deleted) != 0 {
		t.Fatalf("cache should not be invalidated when nothing changed, got %v", *deleted)
	}
}

func TestFullSync(t *testing.T) {
	adapter := pos.NewMockAdapter(pos.WithMockUnavailableItems("item-omelet"))
	menus := newFakeMenuRepo()
	profiles := &fakeProfileRepo{profile: &models.RestaurantProfile{
		TenantID:      "tenant-1",
		POSProvider:   "mock",
		POSLocationID: "loc-1",
		POSClientID:   "client",
	}}
	e, deleted := testEngine(menus, profiles, adapter)

	if err := e.FullSync(context.Background(), "tenant-1"); err != nil {
		t.Fatalf("FullSync failed: %v", err)
	}
	if len(menus.replaced) == 0 {
		t.Fatal("expected catalog to be replaced")
	}

	byExternal := map[string]models.MenuItem{}
	for _, menu := range menus.replaced {
		if menu.TenantID != "tenant-1" {
			t.Fatalf("menu missing tenant stamp: %+v", menu)
		}
		for _, cat := range menu.Categories {
			for _, item := range cat.Items {
				byExternal[item.ExternalID] = item
			}
		}
	}
	omelet, ok := byExternal["item-omelet"]
	if !ok {
		t.Fatal("expected item-omelet in synced catalog")
	}
	if omelet.IsAvailable {
		t.Fatal("expected item-omelet unavailable after sync")
	}
	if omelet.AvailabilityUpdatedAt == nil {
		t.Fatal("expected availability timestamp to be set")
	}
	if scrambled, ok := byExternal["item-scrambled"]; !ok || !scrambled.IsAvailable {
		t.Fatalf("expected item-scrambled available, got %+v", scrambled)
	}
	if len(*deleted) != 1 {
		t.Fatalf("expected one cache invalidation after sync, got %v", *deleted)
	}
}

func TestFullSyncWithoutPOS(t *testing.T) {
	menus := newFakeMenuRepo()
	profiles := &fakeProfileRepo{profile: &models.RestaurantProfile{TenantID: "tenant-1"}}
	e, deleted := testEngine(menus, profiles)

	if err := e.FullSync(context.Background(), "tenant-1"); err != nil {
		t.Fatalf("FullSync failed: %v", err)
	}
	if menus.replaced != nil {
		t.Fatal("catalog should not be touched without a POS connection")
	}
	if len(*deleted) != 0 {
		t.Fatalf("cache should not be invalidated, got %v", *deleted)
	}
}
