package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"taxledger/internal/db"
	"taxledger/internal/models"
	"taxledger/internal/money"
	"taxledger/internal/store"
	"taxledger/internal/taxperiod"
)

type OrganizationService struct {
	txRunner      db.TxRunner
	reader        store.Getter
	organizations OrganizationStore
	activityCodes ActivityCodeStore
	audit         AuditStore
	today         func() time.Time
	log           logrus.FieldLogger
}

func NewOrganizationService(txRunner db.TxRunner, reader store.Getter, organizations OrganizationStore, activityCodes ActivityCodeStore, audit AuditStore, loc *time.Location, logger logrus.FieldLogger) *OrganizationService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OrganizationService{
		txRunner:      txRunner,
		reader:        reader,
		organizations: organizations,
		activityCodes: activityCodes,
		audit:         audit,
		today:         func() time.Time { return taxperiod.Today(loc) },
		log:           logger,
	}
}

// Profile returns the user's profile, creating an empty one on first access.
func (s *OrganizationService) Profile(ctx context.Context, userID string) (models.OrganizationProfile, error) {
	var profile models.OrganizationProfile
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		profile, err = s.ensureProfile(ctx, tx, userID)
		return err
	})
	return profile, err
}

// Existing returns the profile without creating one.
func (s *OrganizationService) Existing(ctx context.Context, userID string) (models.OrganizationProfile, error) {
	profile, err := s.organizations.GetByUser(ctx, s.reader, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.OrganizationProfile{}, ErrProfileNotFound
	}
	return profile, err
}

func (s *OrganizationService) ensureProfile(ctx context.Context, tx *sqlx.Tx, userID string) (models.OrganizationProfile, error) {
	if err := s.organizations.Create(ctx, tx, uuid.NewString(), userID); err != nil {
		return models.OrganizationProfile{}, err
	}
	return s.organizations.GetByUser(ctx, tx, userID)
}

// ProfileUpdate holds the fields a PUT may change. Nil means unchanged.
type ProfileUpdate struct {
	OrgType            *models.OrgType
	TaxRegime          *models.TaxRegime
	TaxPeriodType      *taxperiod.PolicyType
	TaxPeriodPreset    *taxperiod.Preset
	TaxPeriodCustomDay *int
}

func (u ProfileUpdate) validate() error {
	verr := &ValidationError{}
	if u.OrgType != nil && !u.OrgType.Valid() {
		verr.Add("org_type", "must be ie or llc")
	}
	if u.TaxRegime != nil && !u.TaxRegime.Valid() {
		verr.Add("tax_regime", "must be single or general")
	}
	return verr.OrNil()
}

// apply merges u into p. Choosing a period type clears the field the other
// type uses; the merged policy must validate when a type is set.
func (u ProfileUpdate) apply(p *models.OrganizationProfile) error {
	if u.OrgType != nil {
		p.OrgType = u.OrgType
	}
	if u.TaxRegime != nil {
		p.TaxRegime = u.TaxRegime
	}
	if u.TaxPeriodPreset != nil {
		preset := string(*u.TaxPeriodPreset)
		p.TaxPeriodPreset = &preset
	}
	if u.TaxPeriodCustomDay != nil {
		day := *u.TaxPeriodCustomDay
		p.TaxPeriodCustomDay = &day
	}
	if u.TaxPeriodType != nil {
		kind := string(*u.TaxPeriodType)
		p.TaxPeriodType = &kind
		switch *u.TaxPeriodType {
		case taxperiod.PolicyPreset:
			p.TaxPeriodCustomDay = nil
		case taxperiod.PolicyCustom:
			p.TaxPeriodPreset = nil
		}
	}
	if p.TaxPeriodType == nil {
		return nil
	}
	var cfg *taxperiod.ConfigError
	if err := p.TaxPolicy().Validate(); errors.As(err, &cfg) {
		return NewValidationError(cfg.Field, cfg.Err.Error())
	}
	return nil
}

func (s *OrganizationService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (models.OrganizationProfile, error) {
	if err := update.validate(); err != nil {
		return models.OrganizationProfile{}, err
	}
	var profile models.OrganizationProfile
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		profile, err = s.ensureProfile(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := update.apply(&profile); err != nil {
			return err
		}
		switch {
		case update.OrgType != nil && profile.OnboardingStatus == models.OnboardingNotStarted:
			profile.OnboardingStatus = profile.OnboardingStatus.Advance(models.OnboardingOrgType)
		case update.TaxRegime != nil && profile.OnboardingStatus == models.OnboardingOrgType:
			profile.OnboardingStatus = profile.OnboardingStatus.Advance(models.OnboardingTaxRegime)
		}
		if err := s.organizations.Update(ctx, tx, profile); err != nil {
			return err
		}
		return s.logAudit(ctx, tx, userID, "organization.update", "organization_profile", profile.ID, map[string]any{
			"onboarding_status": profile.OnboardingStatus,
		})
	})
	if err != nil {
		return models.OrganizationProfile{}, err
	}
	return profile, nil
}

type OnboardingState struct {
	OnboardingStatus models.OnboardingStatus `json:"onboarding_status"`
	IsCompleted      bool                    `json:"is_completed"`
}

func (s *OrganizationService) Status(ctx context.Context, userID string) (OnboardingState, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return OnboardingState{}, err
	}
	return OnboardingState{OnboardingStatus: profile.OnboardingStatus, IsCompleted: profile.IsCompleted()}, nil
}

// Finalize completes onboarding once the profile has an org type, a tax
// regime and at least one activity of which one is primary.
func (s *OrganizationService) Finalize(ctx context.Context, userID string) (models.OrganizationProfile, error) {
	var profile models.OrganizationProfile
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		profile, err = s.organizations.GetByUser(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProfileNotFound
			}
			return err
		}
		counts, err := s.organizations.CountActivities(ctx, tx, profile.ID)
		if err != nil {
			return err
		}
		verr := &ValidationError{}
		if profile.OrgType == nil {
			verr.Add("org_type", "organization type is not selected")
		}
		if profile.TaxRegime == nil {
			verr.Add("tax_regime", "tax regime is not selected")
		}
		if counts.Total == 0 {
			verr.Add("activities", "no activity has been added")
		} else if counts.Primary == 0 {
			verr.Add("activities", "no primary activity is selected")
		}
		if err := verr.OrNil(); err != nil {
			return err
		}
		profile.OnboardingStatus = models.OnboardingCompleted
		if err := s.organizations.Update(ctx, tx, profile); err != nil {
			return err
		}
		return s.logAudit(ctx, tx, userID, "organization.finalize", "organization_profile", profile.ID, nil)
	})
	if err != nil {
		return models.OrganizationProfile{}, err
	}
	s.log.WithField("user_id", userID).Info("onboarding.completed")
	return profile, nil
}

type TaxPeriodView struct {
	Profile         models.OrganizationProfile
	Current         taxperiod.Period
	NextPeriodStart time.Time
}

// TaxPeriod resolves the configured policy against today.
func (s *OrganizationService) TaxPeriod(ctx context.Context, userID string) (TaxPeriodView, error) {
	profile, err := s.Existing(ctx, userID)
	if err != nil {
		return TaxPeriodView{}, err
	}
	period, err := taxperiod.Resolve(profile.TaxPolicy(), s.today())
	if err != nil {
		return TaxPeriodView{}, err
	}
	return TaxPeriodView{Profile: profile, Current: period, NextPeriodStart: period.NextStart()}, nil
}

func (s *OrganizationService) Activities(ctx context.Context, userID string) ([]models.OrganizationActivity, error) {
	profile, err := s.Existing(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.organizations.ListActivities(ctx, profile.ID)
}

type ActivityInput struct {
	ActivityCodeID int64
	CashTaxRate    decimal.Decimal
	NonCashTaxRate decimal.Decimal
	IsPrimary      bool
}

func (in ActivityInput) validate() error {
	verr := &ValidationError{}
	if in.ActivityCodeID <= 0 {
		verr.Add("activity", "is required")
	}
	if err := money.ValidateRate(in.CashTaxRate); err != nil {
		verr.Add("cash_tax_rate", err.Error())
	}
	if err := money.ValidateRate(in.NonCashTaxRate); err != nil {
		verr.Add("non_cash_tax_rate", err.Error())
	}
	return verr.OrNil()
}

func (s *OrganizationService) AddActivity(ctx context.Context, userID string, in ActivityInput) (models.OrganizationActivity, error) {
	if err := in.validate(); err != nil {
		return models.OrganizationActivity{}, err
	}
	var saved models.OrganizationActivity
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		profile, err := s.ensureProfile(ctx, tx, userID)
		if err != nil {
			return err
		}
		if _, err := s.activityCodes.GetByID(ctx, tx, in.ActivityCodeID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return NewValidationError("activity", "activity code not found")
			}
			return err
		}
		if in.IsPrimary {
			if err := s.checkPrimary(ctx, tx, profile.ID, 0); err != nil {
				return err
			}
		}
		id, err := s.organizations.AddActivity(ctx, tx, models.OrganizationActivity{
			ProfileID:      profile.ID,
			ActivityCodeID: in.ActivityCodeID,
			CashTaxRate:    in.CashTaxRate,
			NonCashTaxRate: in.NonCashTaxRate,
			IsPrimary:      in.IsPrimary,
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrConflict
			}
			return err
		}
		if profile.OnboardingStatus == models.OnboardingTaxRegime {
			profile.OnboardingStatus = profile.OnboardingStatus.Advance(models.OnboardingActivities)
			if err := s.organizations.Update(ctx, tx, profile); err != nil {
				return err
			}
		}
		if err := s.logAudit(ctx, tx, userID, "organization.activity.add", "organization_activity", formatID(id), map[string]any{
			"activity_code_id": in.ActivityCodeID,
			"is_primary":       in.IsPrimary,
		}); err != nil {
			return err
		}
		saved, err = s.organizations.GetActivity(ctx, tx, profile.ID, id)
		return err
	})
	if err != nil {
		return models.OrganizationActivity{}, err
	}
	return saved, nil
}

// UpdateActivity changes rates and the primary flag. The activity code of an
// entry is fixed. Business transactions already written keep their rates.
func (s *OrganizationService) UpdateActivity(ctx context.Context, userID string, activityID int64, in ActivityInput) (models.OrganizationActivity, error) {
	verr := &ValidationError{}
	if err := money.ValidateRate(in.CashTaxRate); err != nil {
		verr.Add("cash_tax_rate", err.Error())
	}
	if err := money.ValidateRate(in.NonCashTaxRate); err != nil {
		verr.Add("non_cash_tax_rate", err.Error())
	}
	if err := verr.OrNil(); err != nil {
		return models.OrganizationActivity{}, err
	}
	var saved models.OrganizationActivity
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		profile, err := s.organizations.GetByUser(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProfileNotFound
			}
			return err
		}
		current, err := s.organizations.GetActivity(ctx, tx, profile.ID, activityID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if in.IsPrimary && !current.IsPrimary {
			if err := s.checkPrimary(ctx, tx, profile.ID, activityID); err != nil {
				return err
			}
		}
		current.CashTaxRate = in.CashTaxRate
		current.NonCashTaxRate = in.NonCashTaxRate
		current.IsPrimary = in.IsPrimary
		rows, err := s.organizations.UpdateActivity(ctx, tx, current)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}
		if err := s.logAudit(ctx, tx, userID, "organization.activity.update", "organization_activity", formatID(activityID), map[string]any{
			"cash_tax_rate":     money.Format(in.CashTaxRate),
			"non_cash_tax_rate": money.Format(in.NonCashTaxRate),
			"is_primary":        in.IsPrimary,
		}); err != nil {
			return err
		}
		saved = current
		return nil
	})
	if err != nil {
		return models.OrganizationActivity{}, err
	}
	return saved, nil
}

func (s *OrganizationService) DeleteActivity(ctx context.Context, userID string, activityID int64) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		profile, err := s.organizations.GetByUser(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProfileNotFound
			}
			return err
		}
		rows, err := s.organizations.DeleteActivity(ctx, tx, profile.ID, activityID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}
		return s.logAudit(ctx, tx, userID, "organization.activity.delete", "organization_activity", formatID(activityID), nil)
	})
}

func (s *OrganizationService) checkPrimary(ctx context.Context, tx *sqlx.Tx, profileID string, exceptID int64) error {
	exists, err := s.organizations.HasOtherPrimary(ctx, tx, profileID, exceptID)
	if err != nil {
		return err
	}
	if exists {
		return ErrSecondPrimaryActivity
	}
	return nil
}

func (s *OrganizationService) logAudit(ctx context.Context, tx *sqlx.Tx, userID, action, entityType, entityID string, data map[string]any) error {
	payload := ""
	if data != nil {
		encoded, _ := json.Marshal(data)
		payload = string(encoded)
	}
	return s.audit.Log(ctx, tx, userID, action, entityType, entityID, payload)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
