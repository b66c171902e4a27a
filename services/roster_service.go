package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/Dosada05/tournament-tracker/models"
	"github.com/Dosada05/tournament-tracker/repositories"
)

type CreatePersonInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

type CreatePrizeInput struct {
	PlaceNumber int
	PlaceName   string
	FixedAmount float64
	Percentage  float64
}

// RosterService manages the people, teams and prizes a tournament draws on.
type RosterService interface {
	CreatePerson(ctx context.Context, input CreatePersonInput) (*models.Person, error)
	CreateTeam(ctx context.Context, name string, memberIDs []int) (*models.Team, error)
	CreatePrize(ctx context.Context, input CreatePrizeInput) (*models.Prize, error)
	ListPeople(ctx context.Context) ([]*models.Person, error)
	ListTeams(ctx context.Context) ([]*models.Team, error)
	ListPrizes(ctx context.Context) ([]*models.Prize, error)
}

type rosterService struct {
	store  repositories.Store
	logger *slog.Logger
}

func NewRosterService(store repositories.Store, logger *slog.Logger) RosterService {
	return &rosterService{store: store, logger: logger}
}

func (s *rosterService) CreatePerson(ctx context.Context, input CreatePersonInput) (*models.Person, error) {
	p := &models.Person{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     strings.TrimSpace(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
	}
	if p.FirstName == "" || p.LastName == "" {
		return nil, ErrPersonFieldsRequired
	}
	if err := checkSingleLine("person name", p.FirstName+p.LastName); err != nil {
		return nil, err
	}
	if p.Email != "" {
		addr, err := mail.ParseAddress(p.Email)
		if err != nil || addr.Address != p.Email {
			return nil, fmt.Errorf("%w: invalid email %q", ErrValidationFailed, p.Email)
		}
	}

	if _, err := s.store.CreatePerson(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save person: %w", err)
	}
	s.logger.InfoContext(ctx, "person created", slog.Int("person_id", p.ID))
	return p, nil
}

func (s *rosterService) CreateTeam(ctx context.Context, name string, memberIDs []int) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}
	if err := checkSingleLine("team name", name); err != nil {
		return nil, err
	}
	if len(memberIDs) == 0 {
		return nil, ErrTeamMembersRequired
	}

	people, err := s.store.GetAllPeople(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load people: %w", err)
	}
	byID := make(map[int]*models.Person, len(people))
	for _, p := range people {
		byID[p.ID] = p
	}

	t := &models.Team{Name: name}
	seen := make(map[int]bool, len(memberIDs))
	for _, id := range memberIDs {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: id %d", ErrPersonNotFound, id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		t.Members = append(t.Members, p)
	}

	if _, err := s.store.CreateTeam(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save team: %w", err)
	}
	s.logger.InfoContext(ctx, "team created", slog.Int("team_id", t.ID), slog.Int("members", len(t.Members)))
	return t, nil
}

// CreatePrize requires a place of at least 1 and either a positive fixed
// amount or a percentage in (0, 100].
func (s *rosterService) CreatePrize(ctx context.Context, input CreatePrizeInput) (*models.Prize, error) {
	p := &models.Prize{
		PlaceNumber: input.PlaceNumber,
		PlaceName:   strings.TrimSpace(input.PlaceName),
		FixedAmount: input.FixedAmount,
		Percentage:  input.Percentage,
	}
	switch {
	case p.PlaceNumber < 1:
		return nil, fmt.Errorf("%w: place number must be at least 1", ErrPrizeInvalid)
	case p.PlaceName == "":
		return nil, fmt.Errorf("%w: place name is required", ErrPrizeInvalid)
	case p.FixedAmount < 0:
		return nil, fmt.Errorf("%w: fixed amount cannot be negative", ErrPrizeInvalid)
	case p.Percentage < 0 || p.Percentage > 100:
		return nil, fmt.Errorf("%w: percentage must be between 0 and 100", ErrPrizeInvalid)
	case p.FixedAmount == 0 && p.Percentage == 0:
		return nil, fmt.Errorf("%w: a fixed amount or a percentage is required", ErrPrizeInvalid)
	}
	if err := checkSingleLine("place name", p.PlaceName); err != nil {
		return nil, err
	}

	if _, err := s.store.CreatePrize(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save prize: %w", err)
	}
	s.logger.InfoContext(ctx, "prize created", slog.Int("prize_id", p.ID), slog.Int("place", p.PlaceNumber))
	return p, nil
}

func (s *rosterService) ListPeople(ctx context.Context) ([]*models.Person, error) {
	return s.store.GetAllPeople(ctx)
}

func (s *rosterService) ListTeams(ctx context.Context) ([]*models.Team, error) {
	return s.store.GetAllTeams(ctx)
}

func (s *rosterService) ListPrizes(ctx context.Context) ([]*models.Prize, error) {
	return s.store.GetAllPrizes(ctx)
}

// checkSingleLine rejects text that ends up in mail headers and contains a
// line break.
func checkSingleLine(field, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: %s must not contain line breaks", ErrValidationFailed, field)
	}
	return nil
}
