package service

import (
	"context"
	"strconv"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/RubachokBoss/homework-distributor/internal/repository"
	"github.com/rs/zerolog"
)

// AccessService knows the single privileged identity. A statically configured
// id wins over the one stored by SetTeacher.
type AccessService interface {
	SetTeacher(ctx context.Context, chatID int64) error
	TeacherID(ctx context.Context) (int64, bool, error)
	IsTeacher(ctx context.Context, chatID int64) (bool, error)
	// Authorize returns ErrTeacherNotConfigured or ErrUnauthorized.
	Authorize(ctx context.Context, chatID int64) error
}

type accessService struct {
	settingRepo repository.SettingRepository
	staticID    int64
	logger      zerolog.Logger
}

func NewAccessService(settingRepo repository.SettingRepository, staticID int64, logger zerolog.Logger) AccessService {
	return &accessService{
		settingRepo: settingRepo,
		staticID:    staticID,
		logger:      logger,
	}
}

func (s *accessService) SetTeacher(ctx context.Context, chatID int64) error {
	if err := s.settingRepo.Set(ctx, models.SettingTeacherChatID, strconv.FormatInt(chatID, 10)); err != nil {
		return storeErr("set teacher", err, nil)
	}

	if s.staticID != 0 && s.staticID != chatID {
		s.logger.Warn().
			Int64("chat_id", chatID).
			Int64("configured_id", s.staticID).
			Msg("Teacher stored but the configured id takes precedence")
	} else {
		s.logger.Info().Int64("chat_id", chatID).Msg("Teacher configured")
	}

	return nil
}

func (s *accessService) TeacherID(ctx context.Context) (int64, bool, error) {
	if s.staticID != 0 {
		return s.staticID, true, nil
	}

	value, ok, err := s.settingRepo.Get(ctx, models.SettingTeacherChatID)
	if err != nil {
		return 0, false, storeErr("get teacher", err, nil)
	}
	if !ok {
		return 0, false, nil
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		s.logger.Error().Str("value", value).Msg("Stored teacher id is not a number")
		return 0, false, nil
	}
	return id, true, nil
}

func (s *accessService) IsTeacher(ctx context.Context, chatID int64) (bool, error) {
	id, ok, err := s.TeacherID(ctx)
	if err != nil || !ok {
		return false, err
	}
	return id == chatID, nil
}

func (s *accessService) Authorize(ctx context.Context, chatID int64) error {
	id, ok, err := s.TeacherID(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTeacherNotConfigured
	}
	if id != chatID {
		return ErrUnauthorized
	}
	return nil
}
