package services

import (
	"context"

	"github.com/harbor-house/apiserver/types"
)

// AgreementReader loads persisted questionnaire answers.
type AgreementReader interface {
	GetByUserID(ctx context.Context, userID string) (types.Agreement, error)
}

// RosterService encapsulates roster read/edit use-cases.
type RosterService struct {
	repo       ResidentRepository
	agreements AgreementReader
}

func NewRosterService(repo ResidentRepository, agreements AgreementReader) *RosterService {
	return &RosterService{repo: repo, agreements: agreements}
}

func (s *RosterService) List(ctx context.Context) ([]types.RosterRow, error) {
	return s.repo.ListResidents(ctx)
}

func (s *RosterService) Get(ctx context.Context, id string) (types.RosterDetail, error) {
	return s.repo.GetResident(ctx, id)
}

func (s *RosterService) Update(ctx context.Context, id string, patch types.ResidentPatch) error {
	return s.repo.UpdateResident(ctx, id, patch)
}

func (s *RosterService) GetAgreement(ctx context.Context, userID string) (types.Agreement, error) {
	return s.agreements.GetByUserID(ctx, userID)
}
