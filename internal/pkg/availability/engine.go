package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/plateful/plateful/app/models"
	"github.com/plateful/plateful/app/repository"
	"github.com/plateful/plateful/internal/pkg/cache"
	"github.com/plateful/plateful/internal/pkg/pos"
)

// MenuCacheTTL bounds how stale the storefront menu read may be.
const MenuCacheTTL = 30 * time.Second

// MenuCacheKey is the redis key for a tenant's rendered menu.
func MenuCacheKey(tenantID string) string {
	return fmt.Sprintf("menu:%s", tenantID)
}

// Engine keeps the local catalog's availability flags in sync with the
// tenant's POS: incremental flips from webhooks, full snapshots from
// menu updates and manual resyncs.
type Engine struct {
	menus       repository.MenuRepository
	profiles    repository.ProfileRepository
	registry    *pos.Registry
	sessions    *pos.SessionCache
	now         func() time.Time
	cacheDelete func(key string) error
}

func NewEngine(menus repository.MenuRepository, profiles repository.ProfileRepository, registry *pos.Registry, sessions *pos.SessionCache) *Engine {
	return &Engine{
		menus:       menus,
		profiles:    profiles,
		registry:    registry,
		sessions:    sessions,
		now:         time.Now,
		cacheDelete: cache.Delete,
	}
}

// HandleAvailabilityChanged applies incremental 86'd flips from a
// webhook. Items the catalog doesn't know are logged and skipped; the
// event still counts as processed.
func (e *Engine) HandleAvailabilityChanged(_ context.Context, tenantID string, changes []pos.AvailabilityChange) error {
	at := e.now()
	applied := 0
	for _, c := range changes {
		if c.ItemExternalID == "" {
			continue
		}
		matched, err := e.menus.SetItemAvailability(tenantID, c.ItemExternalID, c.IsAvailable, at)
		if err != nil {
			return fmt.Errorf("update availability for %s: %w", c.ItemExternalID, err)
		}
		if !matched {
			log.Infof("[Availability] tenant=%s unknown item %s, skipping", tenantID, c.ItemExternalID)
			continue
		}
		applied++
	}
	if applied > 0 {
		e.invalidate(tenantID)
	}
	return nil
}

// FullSync pulls the tenant's entire catalog and availability snapshot
// from the POS and makes the local state match. The snapshot is
// authoritative: it overwrites any earlier webhook-driven flips.
func (e *Engine) FullSync(ctx context.Context, tenantID string) error {
	profile, err := e.profiles.GetByTenantID(tenantID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if !profile.HasPOS() {
		log.Infof("[Availability] tenant=%s has no POS, nothing to sync", tenantID)
		return nil
	}

	provider, err := pos.ParseProvider(profile.POSProvider)
	if err != nil {
		return err
	}
	adapter, err := e.registry.Get(provider)
	if err != nil {
		return err
	}
	creds := CredentialsFromProfile(profile)
	session, err := e.sessions.ForTenant(ctx, adapter, tenantID, creds)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	menus, err := adapter.GetMenus(ctx, session, profile.POSLocationID)
	if err != nil {
		return fmt.Errorf("fetch menus: %w", err)
	}
	availability, err := adapter.GetItemAvailability(ctx, session, profile.POSLocationID)
	if err != nil {
		return fmt.Errorf("fetch availability: %w", err)
	}

	catalog := buildCatalog(tenantID, menus, availability, e.now())
	if err := e.menus.ReplaceCatalog(tenantID, catalog); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}

	e.invalidate(tenantID)
	log.Infof("[Availability] tenant=%s full sync complete: %d menus, %d tracked items", tenantID, len(menus), len(availability))
	return nil
}

func (e *Engine) invalidate(tenantID string) {
	if err := e.cacheDelete(MenuCacheKey(tenantID)); err != nil {
		log.Warnf("[Availability] tenant=%s cache invalidation failed: %v", tenantID, err)
	}
}

// CredentialsFromProfile assembles adapter credentials from the stored
// profile fields.
func CredentialsFromProfile(profile *models.RestaurantProfile) pos.Credentials {
	creds := pos.Credentials{
		Provider:     pos.Provider(profile.POSProvider),
		ClientID:     profile.POSClientID,
		ClientSecret: profile.POSClientSecret,
		LocationID:   profile.POSLocationID,
	}
	if profile.POSAuthCode != "" {
		creds.Extra = map[string]string{"auth_code": profile.POSAuthCode}
	}
	return creds
}

// buildCatalog converts provider menus into persistent rows, applying
// the availability snapshot on the way in.
func buildCatalog(tenantID string, menus []pos.Menu, availability map[string]bool, at time.Time) []models.Menu {
	out := make([]models.Menu, 0, len(menus))
	for mi, menu := range menus {
		row := models.Menu{
			TenantID:       tenantID,
			ExternalID:     menu.ExternalID,
			Name:           menu.Name,
			Description:    menu.Description,
			IsActive:       true,
			AvailableStart: menu.AvailableStart,
			AvailableEnd:   menu.AvailableEnd,
			DisplayOrder:   uint(mi),
		}
		for ci, cat := range menu.Categories {
			catRow := models.MenuCategory{
				TenantID:     tenantID,
				ExternalID:   cat.ExternalID,
				Name:         cat.Name,
				Description:  cat.Description,
				DisplayOrder: uint(ci),
			}
			for ii, item := range cat.Items {
				available := item.IsAvailable
				if tracked, ok := availability[item.ExternalID]; ok {
					available = tracked
				}
				updatedAt := at
				itemRow := models.MenuItem{
					TenantID:              tenantID,
					ExternalID:            item.ExternalID,
					Name:                  item.Name,
					Description:           item.Description,
					Price:                 item.Price,
					ImageURL:              item.ImageURL,
					IsAvailable:           available,
					AvailabilityUpdatedAt: &updatedAt,
					IsVegetarian:          item.IsVegetarian,
					IsVegan:               item.IsVegan,
					IsGlutenFree:          item.IsGlutenFree,
					AllergensJSON:         encodeAllergens(item.Allergens),
					DisplayOrder:          uint(ii),
				}
				for gi, group := range item.ModifierGroups {
					groupRow := models.ModifierGroup{
						TenantID:      tenantID,
						ExternalID:    group.ExternalID,
						Name:          group.Name,
						MinSelections: group.MinSelections,
						MaxSelections: group.MaxSelections,
						DisplayOrder:  uint(gi),
					}
					for oi, mod := range group.Modifiers {
						groupRow.Modifiers = append(groupRow.Modifiers, models.Modifier{
							TenantID:        tenantID,
							ExternalID:      mod.ExternalID,
							Name:            mod.Name,
							PriceAdjustment: mod.PriceAdjustment,
							IsAvailable:     mod.IsAvailable,
							DisplayOrder:    uint(oi),
						})
					}
					itemRow.ModifierGroups = append(itemRow.ModifierGroups, groupRow)
				}
				catRow.Items = append(catRow.Items, itemRow)
			}
			row.Categories = append(row.Categories, catRow)
		}
		out = append(out, row)
	}
	return out
}

func encodeAllergens(allergens []string) string {
	if len(allergens) == 0 {
		return ""
	}
	raw, err := json.Marshal(allergens)
	if err != nil {
		return ""
	}
	return string(raw)
}
