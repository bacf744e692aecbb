package repository

import (
	"gorm.io/gorm"

	"github.com/plateful/plateful/app/models"
)

// profileRepository implements the ProfileRepository interface
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new restaurant profile repository instance
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(profile *models.RestaurantProfile) error {
	return r.db.Create(profile).Error
}

func (r *profileRepository) GetByTenantID(tenantID string) (*models.RestaurantProfile, error) {
	var profile models.RestaurantProfile
	err := r.db.Where("tenant_id = ?", tenantID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) GetByAPIKey(apiKey string) (*models.RestaurantProfile, error) {
	var profile models.RestaurantProfile
	err := r.db.Where("api_key = ?", apiKey).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) Update(profile *models.RestaurantProfile) error {
	return r.db.Save(profile).Error
}

// ListWithPOS returns every profile with a POS connection, for the
// periodic reconciliation sweeps.
func (r *profileRepository) ListWithPOS() ([]models.RestaurantProfile, error) {
	var profiles []models.RestaurantProfile
	err := r.db.Where("pos_provider <> '' AND pos_location_id <> ''").Find(&profiles).Error
	return profiles, err
}
