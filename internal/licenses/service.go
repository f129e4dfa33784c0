package licenses

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/notelift/notelift-backend/pkg/db"
	"github.com/notelift/notelift-backend/pkg/db/models"
	pkgerrors "github.com/notelift/notelift-backend/pkg/errors"
	"gorm.io/gorm"
)

const generateMaxAttempts = 10

type licensesRepository interface {
	Create(ctx context.Context, key *models.LicenseKey) (*models.LicenseKey, error)
	FindByKey(ctx context.Context, key string) (*models.LicenseKey, error)
	List(ctx context.Context, activeOnly bool) ([]models.LicenseKey, error)
	Revoke(ctx context.Context, key string, at time.Time) (bool, error)
	Claim(ctx context.Context, key string, userID uint, at time.Time) (bool, error)
	HasActiveLicense(ctx context.Context, userID uint) (bool, error)
	Stats(ctx context.Context) (*Stats, error)
}

// Service exposes ledger creation, validation, activation and
// administrative semantics.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.LicenseKey, error)
	Generate(ctx context.Context, count int, createdBy, notes string) ([]string, error)
	Validate(ctx context.Context, key string) (*ValidationResult, error)
	Activate(ctx context.Context, key string, userID uint) error
	Revoke(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, activeOnly bool) ([]ListItem, error)
	HasActiveLicense(ctx context.Context, userID uint) (bool, error)
	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	repo licensesRepository
	now  func() time.Time
}

// NewService builds a license service backed by the provided repository.
func NewService(repo licensesRepository) (Service, error) {
	if repo == nil {
		return nil, errors.New("license repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.LicenseKey, error) {
	normalized := NormalizeKey(input.Key)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license key is required")
	}

	row := &models.LicenseKey{
		Key:       normalized,
		IsActive:  true,
		CreatedBy: strings.TrimSpace(input.CreatedBy),
		Notes:     strings.TrimSpace(input.Notes),
	}
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_license_keys_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "license key already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create license key")
	}
	return created, nil
}

// Generate mints count fresh random keys, retrying each one a bounded
// number of times on code collision.
func (s *service) Generate(ctx context.Context, count int, createdBy, notes string) ([]string, error) {
	if count <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "count must be positive")
	}

	keys := make([]string, 0, count)
	for i := 0; i < count; i++ {
		var created *models.LicenseKey
		for attempt := 0; attempt < generateMaxAttempts; attempt++ {
			code, err := GenerateKey()
			if err != nil {
				return keys, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate license code")
			}
			created, err = s.Create(ctx, CreateInput{Key: code, CreatedBy: createdBy, Notes: notes})
			if err == nil {
				break
			}
			if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				return keys, err
			}
			created = nil
		}
		if created == nil {
			return keys, pkgerrors.New(pkgerrors.CodeInternal, "could not mint a unique license key")
		}
		keys = append(keys, created.Key)
	}
	return keys, nil
}

func (s *service) Validate(ctx context.Context, key string) (*ValidationResult, error) {
	normalized := NormalizeKey(key)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license key is required")
	}

	row, err := s.repo.FindByKey(ctx, normalized)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ValidationResult{
			Validity: ValidityInvalid,
			Message:  "Invalid license key",
		}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup license key")
	}

	if !row.IsActive {
		return &ValidationResult{
			Validity: ValidityRevoked,
			IsUsed:   row.IsUsed(),
			Message:  "License key has been revoked",
		}, nil
	}
	if row.IsUsed() {
		return &ValidationResult{
			Validity:    ValidityValidUsed,
			Valid:       true,
			IsUsed:      true,
			Message:     "License key is already in use",
			OwnerUserID: row.UsedByUserID,
		}, nil
	}
	return &ValidationResult{
		Validity: ValidityValidUnused,
		Valid:    true,
		Message:  "License key is valid",
	}, nil
}

// Activate links the key to the user. Reconnecting with a key the user
// already owns succeeds silently.
func (s *service) Activate(ctx context.Context, key string, userID uint) error {
	normalized := NormalizeKey(key)
	if normalized == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "license key is required")
	}
	if userID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}

	claimed, err := s.repo.Claim(ctx, normalized, userID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim license key")
	}
	if claimed {
		return nil
	}

	// The conditional update missed; classify why for the caller.
	result, err := s.Validate(ctx, normalized)
	if err != nil {
		return err
	}
	switch result.Validity {
	case ValidityInvalid:
		return pkgerrors.New(pkgerrors.CodeForbidden, "invalid license key")
	case ValidityRevoked:
		return pkgerrors.New(pkgerrors.CodeForbidden, "license key has been revoked")
	case ValidityValidUsed:
		return pkgerrors.New(pkgerrors.CodeForbidden, "license key already claimed by another workspace")
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "license key could not be activated")
}

func (s *service) Revoke(ctx context.Context, key string) (bool, error) {
	normalized := NormalizeKey(key)
	if normalized == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "license key is required")
	}

	found, err := s.repo.Revoke(ctx, normalized, s.now().UTC())
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke license key")
	}
	return found, nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]ListItem, error) {
	rows, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list license keys")
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = toListItem(row)
	}
	return items, nil
}

func (s *service) HasActiveLicense(ctx context.Context, userID uint) (bool, error) {
	ok, err := s.repo.HasActiveLicense(ctx, userID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active license")
	}
	return ok, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate license stats")
	}
	return stats, nil
}
