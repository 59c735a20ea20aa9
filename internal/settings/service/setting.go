package service

import (
	"context"
	"strconv"

	"github.com/nonsir1/Roomly/internal/settings/repository"
	"github.com/nonsir1/Roomly/pkg/config"
	apperrors "github.com/nonsir1/Roomly/pkg/errors"
	"github.com/nonsir1/Roomly/pkg/model"
	"github.com/nonsir1/Roomly/pkg/sanitizer"
)

// knownSettings maps every recognized key to its default value. Unknown keys
// are rejected on write so typos cannot create phantom settings.
var knownSettings = map[string]string{
	model.SettingEnableHourlySlots:  "false",
	model.SettingAllowMultipleSlots: "false",
}

type SettingService interface {
	GetAll(ctx context.Context) (map[string]string, error)
	GetByKey(ctx context.Context, key string) (*model.Setting, error)
	GetSchedulingMode(ctx context.Context) (model.SchedulingMode, error)
	UpdateAll(ctx context.Context, viewer model.Viewer, values map[string]string) error
	UpdateKey(ctx context.Context, viewer model.Viewer, key, value string) error
}

type settingService struct {
	repo repository.SettingRepository
	cfg  *config.Config
}

func NewSettingService(repo repository.SettingRepository, cfg *config.Config) SettingService {
	return &settingService{
		repo: repo,
		cfg:  cfg,
	}
}

// GetAll returns every known setting, stored values layered over defaults.
func (s *settingService) GetAll(ctx context.Context) (map[string]string, error) {
	stored, err := s.repo.FindAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to load settings", "error", err)
		return nil, apperrors.Internal("Failed to load settings", err)
	}

	values := make(map[string]string, len(knownSettings))
	for key, def := range knownSettings {
		values[key] = def
	}
	for _, setting := range stored {
		if _, known := knownSettings[setting.Key]; known {
			values[setting.Key] = setting.Value
		}
	}

	return values, nil
}

// GetByKey returns a single setting, falling back to its default when
// nothing has been stored yet.
func (s *settingService) GetByKey(ctx context.Context, key string) (*model.Setting, error) {
	key = sanitizer.SanitizeKey(key)
	def, known := knownSettings[key]
	if !known {
		return nil, apperrors.NotFound("Setting")
	}

	stored, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		s.cfg.Log.Error("Failed to load setting", "key", key, "error", err)
		return nil, apperrors.Internal("Failed to load setting", err)
	}
	if stored == nil {
		return &model.Setting{Key: key, Value: def}, nil
	}
	return stored, nil
}

func (s *settingService) GetSchedulingMode(ctx context.Context) (model.SchedulingMode, error) {
	values, err := s.GetAll(ctx)
	if err != nil {
		return model.SchedulingMode{}, err
	}

	return model.SchedulingMode{
		SlotMode:  values[model.SettingEnableHourlySlots] == "true",
		MultiSlot: values[model.SettingAllowMultipleSlots] == "true",
	}, nil
}

func (s *settingService) UpdateAll(ctx context.Context, viewer model.Viewer, values map[string]string) error {
	if !viewer.IsAdmin() {
		return apperrors.Forbidden("Only administrators can change settings")
	}
	if len(values) == 0 {
		return apperrors.InvalidInput("No settings provided")
	}

	for key, value := range values {
		if err := s.upsert(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *settingService) UpdateKey(ctx context.Context, viewer model.Viewer, key, value string) error {
	if !viewer.IsAdmin() {
		return apperrors.Forbidden("Only administrators can change settings")
	}
	return s.upsert(ctx, key, value)
}

func (s *settingService) upsert(ctx context.Context, key, value string) error {
	key = sanitizer.SanitizeKey(key)
	if _, known := knownSettings[key]; !known {
		return apperrors.InvalidInput("Unknown setting key: " + key)
	}
	if _, err := strconv.ParseBool(value); err != nil {
		return apperrors.InvalidInput("Setting value must be a boolean string, got: " + value)
	}

	// Normalize every truthy spelling to the canonical pair.
	parsed, _ := strconv.ParseBool(value)
	normalized := strconv.FormatBool(parsed)

	if err := s.repo.Upsert(ctx, &model.Setting{Key: key, Value: normalized}); err != nil {
		s.cfg.Log.Error("Failed to save setting", "key", key, "error", err)
		return apperrors.Internal("Failed to save setting", err)
	}

	s.cfg.Log.Info("Setting updated", "key", key, "value", normalized)
	return nil
}
