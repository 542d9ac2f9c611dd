package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"uranai/internal/domain"
	"uranai/internal/entitlement"
	"uranai/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// errSuperseded is returned by loads whose session ended before they could commit
var errSuperseded = errors.New("load superseded by a session change")

// Defaults applied when the user leaves birth fields blank
const (
	DefaultBirthTime  = "12:00"
	DefaultBirthPlace = "東京都中央区"
)

// ProfileService is the profile facade over the backend. Successful calls are
// written into the store.
type ProfileService struct {
	api    ProfileAPI
	store  *store.Store
	logger *zap.Logger
	loads  singleflight.Group
}

// NewProfileService creates a new profile service
func NewProfileService(api ProfileAPI, st *store.Store, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		api:    api,
		store:  st,
		logger: logger,
	}
}

// Create validates in, checks the profile cap and creates the profile.
// requireBirthDate is set by callers creating a partner for a compatibility reading.
func (s *ProfileService) Create(ctx context.Context, in domain.ProfileInput, requireBirthDate bool) (domain.Profile, error) {
	in.Nickname = strings.TrimSpace(in.Nickname)
	in.NameHiragana = strings.TrimSpace(in.NameHiragana)
	in.BirthDate = strings.TrimSpace(in.BirthDate)
	in.BirthTime = strings.TrimSpace(in.BirthTime)

	if err := validateProfileInput(in, requireBirthDate); err != nil {
		return domain.Profile{}, err
	}

	state := s.store.Get()
	if err := entitlement.CanAddProfile(len(state.Profiles), state.Entitlement.IsPremium).Err(); err != nil {
		return domain.Profile{}, err
	}

	if in.BirthTime == "" {
		in.BirthTime = DefaultBirthTime
	}
	if in.BirthLocation == nil || strings.TrimSpace(in.BirthLocation.Place) == "" {
		in.BirthLocation = &domain.Place{Place: DefaultBirthPlace}
	}
	if in.Gender == "" {
		in.Gender = domain.GenderUnknown
	}

	profile, err := s.api.CreateProfile(ctx, in)
	if err != nil {
		s.logger.Warn("Failed to create profile", zap.Error(err))
		return domain.Profile{}, err
	}

	s.store.Set(func(st *domain.AppState) {
		if _, exists := domain.FindProfile(st.Profiles, profile.ID); !exists {
			st.Profiles = append(st.Profiles, profile)
		}
	})
	s.logger.Info("Profile created", zap.Int("profile_id", profile.ID))
	return profile, nil
}

func validateProfileInput(in domain.ProfileInput, requireBirthDate bool) error {
	if in.Nickname == "" {
		return domain.NewValidationError("ニックネームを入力してください。")
	}
	if in.BirthDate == "" && requireBirthDate {
		return domain.NewValidationError("生年月日を入力してください。")
	}
	if in.BirthDate != "" {
		if _, err := time.Parse(domain.DateLayout, in.BirthDate); err != nil {
			return domain.NewValidationError("生年月日は YYYY-MM-DD の形式で入力してください。")
		}
	}
	if in.BirthTime != "" {
		if _, err := time.Parse(domain.TimeLayout, in.BirthTime); err != nil {
			return domain.NewValidationError("出生時刻は HH:MM の形式で入力してください。")
		}
	}
	return nil
}

// Update changes the given fields of profile id
func (s *ProfileService) Update(ctx context.Context, id int, update domain.ProfileUpdate) error {
	if update.Nickname != nil && strings.TrimSpace(*update.Nickname) == "" {
		return domain.NewValidationError("ニックネームを入力してください。")
	}
	if update.BirthDate != nil && *update.BirthDate != "" {
		if _, err := time.Parse(domain.DateLayout, *update.BirthDate); err != nil {
			return domain.NewValidationError("生年月日は YYYY-MM-DD の形式で入力してください。")
		}
	}

	if err := s.api.UpdateProfile(ctx, id, update); err != nil {
		s.logger.Warn("Failed to update profile", zap.Int("profile_id", id), zap.Error(err))
		return err
	}

	s.store.Set(func(st *domain.AppState) {
		for i, p := range st.Profiles {
			if p.ID == id {
				st.Profiles[i] = update.Apply(p)
			}
		}
	})
	return nil
}

// Delete removes profile id and drops it from the selection
func (s *ProfileService) Delete(ctx context.Context, id int) error {
	if err := s.api.DeleteProfile(ctx, id); err != nil {
		s.logger.Warn("Failed to delete profile", zap.Int("profile_id", id), zap.Error(err))
		return err
	}

	s.store.Set(func(st *domain.AppState) {
		profiles := st.Profiles[:0]
		for _, p := range st.Profiles {
			if p.ID != id {
				profiles = append(profiles, p)
			}
		}
		st.Profiles = profiles

		ids := st.Selection.ProfileIDs[:0]
		for _, selected := range st.Selection.ProfileIDs {
			if selected != id {
				ids = append(ids, selected)
			}
		}
		st.Selection.ProfileIDs = ids
	})
	s.logger.Info("Profile deleted", zap.Int("profile_id", id))
	return nil
}

// LoadAll fetches every profile of the signed-in user. Concurrent calls share one
// request. The list is committed only while ctx is live, so a load outlived by
// its session returns errSuperseded and leaves the store alone.
func (s *ProfileService) LoadAll(ctx context.Context) ([]domain.Profile, error) {
	v, err, shared := s.loads.Do("profiles", func() (any, error) {
		return s.load(ctx)
	})
	if errors.Is(err, errSuperseded) && shared && ctx.Err() == nil {
		// Joined a load started by a session that has since ended
		v, err, shared = s.loads.Do("profiles", func() (any, error) {
			return s.load(ctx)
		})
	}
	if err != nil {
		if !errors.Is(err, errSuperseded) {
			s.logger.Warn("Failed to load profiles", zap.Error(err))
		}
		return nil, err
	}

	profiles := v.([]domain.Profile)
	s.logger.Debug("Profiles loaded", zap.Int("count", len(profiles)), zap.Bool("shared", shared))
	return append([]domain.Profile(nil), profiles...), nil
}

func (s *ProfileService) load(ctx context.Context) ([]domain.Profile, error) {
	profiles, err := s.api.ListProfiles(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errSuperseded
		}
		return nil, err
	}

	committed := s.store.Transact(func(st *domain.AppState) bool {
		if ctx.Err() != nil {
			return false
		}
		store.WithProfiles(profiles)(st)
		return true
	})
	if !committed {
		return nil, errSuperseded
	}
	return profiles, nil
}
