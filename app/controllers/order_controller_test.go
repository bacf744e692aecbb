package controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/plateful/plateful/app/models"
)

type stubMenuRepo struct {
	items map[string]*models.MenuItem
}

func (r *stubMenuRepo) GetActiveMenus(string) ([]models.Menu, error) { return nil, nil }

func (r *stubMenuRepo) GetItemByExternalID(_, externalID string) (*models.MenuItem, error) {
	item, ok := r.items[externalID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (r *stubMenuRepo) SetItemAvailability(string, string, bool, time.Time) (bool, error) {
	return false, nil
}

func (r *stubMenuRepo) SetAllAvailability(string, map[string]bool, time.Time) (int, error) {
	return 0, nil
}

func (r *stubMenuRepo) ReplaceCatalog(string, []models.Menu) error { return nil }

func (r *stubMenuRepo) GetItemsByIDs(string, []uint) ([]models.MenuItem, error) { return nil, nil }

func burgerMenu() *stubMenuRepo {
	return &stubMenuRepo{items: map[string]*models.MenuItem{
		"item-burger": {
			ID:          1,
			ExternalID:  "item-burger",
			Name:        "Cheeseburger",
			Price:       1200,
			IsAvailable: true,
			ModifierGroups: []models.ModifierGroup{
				{
					Name: "Extras",
					Modifiers: []models.Modifier{
						{ExternalID: "mod-bacon", Name: "Bacon", PriceAdjustment: 250, IsAvailable: true},
						{ExternalID: "mod-truffle", Name: "Truffle Aioli", PriceAdjustment: 400, IsAvailable: false},
					},
				},
			},
		},
		"item-fries": {
			ID:          2,
			ExternalID:  "item-fries",
			Name:        "Fries",
			Price:       450,
			IsAvailable: true,
		},
		"item-special": {
			ID:          3,
			ExternalID:  "item-special",
			Name:        "Soup of the Day",
			Price:       700,
			IsAvailable: false,
		},
	}}
}

func TestSnapshotLines(t *testing.T) {
	lines, subtotal, err := snapshotLines(burgerMenu(), "tenant-1", []CheckoutItemRequest{
		{ItemID: "item-burger", Quantity: 2, ModifierIDs: []string{"mod-bacon"}},
		{ItemID: "item-fries", Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	// (1200 + 250) * 2 = 2900, plus fries 450.
	assert.Equal(t, int64(2900), lines[0].LineTotal)
	assert.Equal(t, int64(450), lines[1].LineTotal)
	assert.Equal(t, int64(3350), subtotal)

	assert.Equal(t, "Cheeseburger", lines[0].ItemName)
	assert.Equal(t, int64(1200), lines[0].UnitPrice)

	mods := lines[0].Modifiers()
	require.Len(t, mods, 1)
	assert.Equal(t, "Bacon", mods[0].Name)
	assert.Equal(t, int64(250), mods[0].PriceAdjustment)
	assert.Empty(t, lines[1].ModifiersJSON)
}

func TestSnapshotLinesRejectsUnknownItem(t *testing.T) {
	_, _, err := snapshotLines(burgerMenu(), "tenant-1", []CheckoutItemRequest{
		{ItemID: "item-pizza", Quantity: 1},
	})
	var unerr *unorderableError
	require.ErrorAs(t, err, &unerr)
	assert.Contains(t, unerr.Error(), "item-pizza")
}

func TestSnapshotLinesRejectsUnavailableItem(t *testing.T) {
	_, _, err := snapshotLines(burgerMenu(), "tenant-1", []CheckoutItemRequest{
		{ItemID: "item-special", Quantity: 1},
	})
	var unerr *unorderableError
	require.ErrorAs(t, err, &unerr)
	assert.Contains(t, unerr.Error(), "Soup of the Day")
}

func TestSnapshotLinesRejectsUnavailableModifier(t *testing.T) {
	_, _, err := snapshotLines(burgerMenu(), "tenant-1", []CheckoutItemRequest{
		{ItemID: "item-burger", Quantity: 1, ModifierIDs: []string{"mod-truffle"}},
	})
	var unerr *unorderableError
	require.ErrorAs(t, err, &unerr)
	assert.Contains(t, unerr.Error(), "Truffle Aioli")
}

func TestSnapshotLinesRejectsUnknownModifier(t *testing.T) {
	_, _, err := snapshotLines(burgerMenu(), "tenant-1", []CheckoutItemRequest{
		{ItemID: "item-fries", Quantity: 1, ModifierIDs: []string{"mod-bacon"}},
	})
	var unerr *unorderableError
	require.ErrorAs(t, err, &unerr)
	assert.Contains(t, unerr.Error(), "mod-bacon")
}
