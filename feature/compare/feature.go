package compare

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"koala-diff/core/diff"
	"koala-diff/core/storage"
)

// Feature wraps the compare service for the feature loader.
type Feature struct {
	service *Service
}

// NewFeature creates the compare feature.
func NewFeature(cfg diff.Config, db *gorm.DB, store storage.Client, logger *zap.Logger) *Feature {
	return &Feature{service: NewService(cfg, db, store, logger)}
}

// Name identifies the feature.
func (f *Feature) Name() string { return "compare" }

// IsEnabled reports whether the feature should be loaded.
func (f *Feature) IsEnabled() bool { return true }

// Load registers the compare routes.
func (f *Feature) Load(app fiber.Router) error {
	NewHandler(f.service).RegisterRoutes(app)
	return nil
}
