package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/harbor-house/apiserver/internal/identity"
	"github.com/harbor-house/apiserver/internal/services"
	"github.com/harbor-house/apiserver/types"
)

// OnboardingHandler serves the two-step registration wizard.
type OnboardingHandler struct {
	registration *services.RegistrationService
	provider     identity.SessionProvider
}

// NewOnboardingHandler constructs an OnboardingHandler with the provided
// dependencies.
func NewOnboardingHandler(registration *services.RegistrationService, provider identity.SessionProvider) *OnboardingHandler {
	return &OnboardingHandler{registration: registration, provider: provider}
}

// OnboardingRouter registers onboarding routes on the given router.
func OnboardingRouter(r chi.Router, registration *services.RegistrationService, provider identity.SessionProvider, authMiddleware func(http.Handler) http.Handler) {
	handler := NewOnboardingHandler(registration, provider)

	r.With(authMiddleware).Post("/step1", handler.Step1)
	r.With(authMiddleware).Post("/step2", handler.Step2)
}

// Step1Request is the profile/program intake form.
type Step1Request struct {
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	FullName     string   `json:"full_name,omitempty"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	SobrietyDate string   `json:"sobriety_date"`
	Sponsor      string   `json:"sponsor"`
	Step         string   `json:"step"`
	Roles        []string `json:"roles,omitempty"`
}

// StepResponse reports a wizard step outcome; Errors carries every message
// the workflow reported through its error callback.
type StepResponse struct {
	OK     bool     `json:"ok"`
	Errors []string `json:"errors,omitempty"`
}

// Step1 runs profile/program intake for the signed-in user.
func (h *OnboardingHandler) Step1(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req Step1Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	form := types.Registration{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		FullName:     req.FullName,
		Email:        req.Email,
		PhoneNumber:  req.Phone,
		SobrietyDate: req.SobrietyDate,
		Sponsor:      req.Sponsor,
		Step:         req.Step,
	}

	var messages []string
	ok := h.registration.HandleStep1(r.Context(), subject, form, req.Roles, func(message string) {
		messages = append(messages, message)
	})
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, StepResponse{OK: false, Errors: messages})
		return
	}

	writeJSON(w, http.StatusCreated, StepResponse{OK: true})
}

// Step2Request is the agreement/questionnaire form. UserID echoes the id
// the client remembers for its session.
type Step2Request struct {
	UserID        string `json:"user_id"`
	Danger        bool   `json:"danger"`
	DangerDetails string `json:"danger_details"`

	AdmitAlcoholic      bool `json:"admit_alcoholic"`
	CommittedToRecovery bool `json:"committed_to_recovery"`
	Sober72Hours        bool `json:"sober_72_hours"`
	Commit30Days        bool `json:"commit_30_days"`
	FollowHouseRules    bool `json:"follow_house_rules"`
	BecomeMember        bool `json:"become_member"`
	NoSexCrimes         bool `json:"no_sex_crimes"`
}

// Step2 records the questionnaire and marks onboarding complete.
func (h *OnboardingHandler) Step2(w http.ResponseWriter, r *http.Request) {
	var req Step2Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	var session *identity.Session
	current, err := h.provider.CurrentSession(r.Context())
	switch {
	case err == nil:
		session = &current
	case errors.Is(err, identity.ErrNoSession):
		// The workflow reports the missing session itself.
	default:
		writeError(w, http.StatusBadGateway, "failed to resolve session")
		return
	}

	form := types.Questionnaire{
		UserID:              req.UserID,
		Danger:              req.Danger,
		DangerDetails:       req.DangerDetails,
		AdmitAlcoholic:      req.AdmitAlcoholic,
		CommittedToRecovery: req.CommittedToRecovery,
		Sober72Hours:        req.Sober72Hours,
		Commit30Days:        req.Commit30Days,
		FollowHouseRules:    req.FollowHouseRules,
		BecomeMember:        req.BecomeMember,
		NoSexCrimes:         req.NoSexCrimes,
	}

	var messages []string
	ok := h.registration.HandleStep2(r.Context(), form, func(message string) {
		messages = append(messages, message)
	}, session)
	if !ok {
		status := http.StatusUnprocessableEntity
		if session == nil {
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, StepResponse{OK: false, Errors: messages})
		return
	}

	writeJSON(w, http.StatusOK, StepResponse{OK: true})
}
