package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/harbor-house/apiserver/internal/identity"
	"github.com/harbor-house/apiserver/internal/mq"
	"github.com/harbor-house/apiserver/internal/storage"
	"github.com/harbor-house/apiserver/internal/store"
	"github.com/harbor-house/apiserver/types"
	"github.com/rs/zerolog/log"
)

// ResidentRepository defines persistence operations for the roster.
type ResidentRepository interface {
	CreateResident(ctx context.Context, sub types.Registration) store.RegisterResult
	ListResidents(ctx context.Context) ([]types.RosterRow, error)
	GetResident(ctx context.Context, id string) (types.RosterDetail, error)
	UpdateResident(ctx context.Context, id string, patch types.ResidentPatch) error
}

// AgreementRepository persists step-2 questionnaire answers.
type AgreementRepository interface {
	SaveForExternalID(ctx context.Context, externalID string, agreement types.Agreement) error
}

// step1Required lists the intake fields a submission must carry, in the
// order they are reported when missing.
var step1Required = []string{"firstName", "lastName", "phone", "sobrietyDate", "sponsor"}

// RegistrationService orchestrates the two-step onboarding workflow:
// profile/program intake backed by the resident repository, then the
// agreement questionnaire and the identity-provider completion flag.
// Events and archive are optional; when nil the corresponding side effect
// is skipped.
type RegistrationService struct {
	repo       ResidentRepository
	agreements AgreementRepository
	identity   identity.SessionProvider
	events     *mq.Events
	archive    *storage.Archive
}

func NewRegistrationService(
	repo ResidentRepository,
	agreements AgreementRepository,
	provider identity.SessionProvider,
	events *mq.Events,
	archive *storage.Archive,
) *RegistrationService {
	return &RegistrationService{
		repo:       repo,
		agreements: agreements,
		identity:   provider,
		events:     events,
		archive:    archive,
	}
}

// HandleStep1 validates the intake form, resolves role gating, and
// delegates to the resident repository. Every failure is reported through
// onError; the return value tells the caller whether to advance the
// wizard. Validation gates: when any required field is missing, all
// missing fields are reported and the repository is never invoked.
func (s *RegistrationService) HandleStep1(ctx context.Context, externalID string, form types.Registration, roleHints []string, onError func(string)) bool {
	form.ExternalID = externalID

	missing := missingFields(form)
	for _, field := range missing {
		onError(field + " is required")
	}
	if len(missing) > 0 {
		return false
	}

	result, err := s.register(ctx, form, roleHints)
	if err != nil {
		message := err.Error()
		if message == "" {
			message = "An error occurred during sign up"
		}
		onError(message)
		return false
	}
	if !result.OK {
		onError("Failed to save users metadata: " + result.JoinedErrors())
		return false
	}

	s.announceRegistration(ctx, result.UserID, form)
	return true
}

// register applies the role gating. Empty hints assign the default
// resident role through the identity gateway and still attempt residency
// creation; hints naming the resident role proceed directly; anything
// else is unsupported and fails before any write.
func (s *RegistrationService) register(ctx context.Context, sub types.Registration, roleHints []string) (store.RegisterResult, error) {
	if len(roleHints) == 0 {
		// Role assignment is separate from residency creation; a gateway
		// failure here does not block the write.
		if err := s.identity.UpdateRoles(ctx, sub.ExternalID, types.DefaultRoles); err != nil {
			log.Error().Err(err).Str("component", "HandleStep1").Msg("default role assignment failed")
		}
		return s.repo.CreateResident(ctx, sub), nil
	}
	if slices.Contains(roleHints, types.RoleResident) {
		return s.repo.CreateResident(ctx, sub), nil
	}
	return store.RegisterResult{}, fmt.Errorf("unsupported roles [%s]", strings.Join(roleHints, ", "))
}

func (s *RegistrationService) announceRegistration(ctx context.Context, userID string, form types.Registration) {
	if s.events == nil {
		return
	}
	_, err := s.events.PublishRegistered(ctx, mq.RegisteredEvent{
		UserID:       userID,
		ExternalID:   form.ExternalID,
		Name:         form.DisplayName(),
		Email:        form.Email,
		RegisteredAt: time.Now(),
	})
	if err != nil {
		log.Error().Err(err).Str("component", "HandleStep1").Msg("registration event publish failed")
	}
}

// HandleStep2 persists the agreement questionnaire and marks onboarding
// complete in the identity provider. A nil session fails immediately with
// no repository or gateway call. A mismatch between the id the client
// remembers and the current session's id is logged but not fatal.
func (s *RegistrationService) HandleStep2(ctx context.Context, form types.Questionnaire, onError func(string), session *identity.Session) bool {
	if session == nil {
		onError("User is not logged in.")
		return false
	}

	target := form.UserID
	if target == "" {
		target = session.UserID
	} else if target != session.UserID {
		log.Error().
			Str("component", "HandleStep2").
			Str("client_user_id", form.UserID).
			Str("session_user_id", session.UserID).
			Msg("user id mismatch between client and session")
	}

	agreement := types.Agreement{
		Danger:              form.Danger,
		DangerDetails:       form.DangerDetails,
		AdmitAlcoholic:      form.AdmitAlcoholic,
		CommittedToRecovery: form.CommittedToRecovery,
		Sober72Hours:        form.Sober72Hours,
		Commit30Days:        form.Commit30Days,
		FollowHouseRules:    form.FollowHouseRules,
		BecomeMember:        form.BecomeMember,
		NoSexCrimes:         form.NoSexCrimes,
		AcceptAll:           form.AcceptAll(),
	}
	if err := s.agreements.SaveForExternalID(ctx, target, agreement); err != nil {
		onError("Failed to save agreement answers: " + err.Error())
		return false
	}

	s.archiveIntakePacket(ctx, target, form)

	if err := s.identity.SetUserMetadata(ctx, target, map[string]any{"onboardingComplete": true}); err != nil {
		var apiErr *identity.APIError
		if errors.As(err, &apiErr) {
			onError("Failed to update user. " + apiErr.Error())
		} else {
			onError(fmt.Sprintf("Failed to update user [%s]", err.Error()))
		}
		return false
	}

	if err := s.identity.Refresh(ctx, target); err != nil {
		log.Warn().Err(err).Str("component", "HandleStep2").Msg("session refresh failed")
	}
	return true
}

func (s *RegistrationService) archiveIntakePacket(ctx context.Context, externalID string, form types.Questionnaire) {
	if s.archive == nil {
		return
	}
	packet, err := json.Marshal(form)
	if err != nil {
		log.Error().Err(err).Str("component", "HandleStep2").Msg("intake packet marshal failed")
		return
	}
	if err := s.archive.PutIntakePacket(ctx, externalID, packet); err != nil {
		log.Error().Err(err).Str("component", "HandleStep2").Msg("intake packet archive failed")
	}
}

func missingFields(form types.Registration) []string {
	values := map[string]string{
		"firstName":    form.FirstName,
		"lastName":     form.LastName,
		"phone":        form.PhoneNumber,
		"sobrietyDate": form.SobrietyDate,
		"sponsor":      form.Sponsor,
	}
	missing := make([]string, 0)
	for _, field := range step1Required {
		if strings.TrimSpace(values[field]) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}
