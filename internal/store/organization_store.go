package store

import (
	"context"

	"taxledger/internal/models"
)

type OrganizationStore struct {
	db DB
}

func NewOrganizationStore(db DB) *OrganizationStore {
	return &OrganizationStore{db: db}
}

const profileColumns = `id, user_id, org_type, tax_regime, tax_period_type, tax_period_preset,
	tax_period_custom_day, onboarding_status, created_at, updated_at`

func (s *OrganizationStore) GetByUser(ctx context.Context, q Getter, userID string) (models.OrganizationProfile, error) {
	var profile models.OrganizationProfile
	err := q.GetContext(ctx, &profile, `SELECT `+profileColumns+` FROM organization_profiles WHERE user_id = $1`, userID)
	return profile, err
}

// Create inserts an empty profile. A concurrent create for the same user is
// absorbed by the unique user_id.
func (s *OrganizationStore) Create(ctx context.Context, tx Execer, id, userID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO organization_profiles (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, id, userID)
	return err
}

func (s *OrganizationStore) Update(ctx context.Context, tx Execer, p models.OrganizationProfile) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE organization_profiles
		SET org_type = $1, tax_regime = $2, tax_period_type = $3, tax_period_preset = $4,
		    tax_period_custom_day = $5, onboarding_status = $6, updated_at = now()
		WHERE id = $7
	`, p.OrgType, p.TaxRegime, p.TaxPeriodType, p.TaxPeriodPreset, p.TaxPeriodCustomDay, string(p.OnboardingStatus), p.ID)
	return err
}

const activitySelect = `
	SELECT oa.id, oa.profile_id, oa.activity_code_id, ac.code, ac.name,
	       oa.cash_tax_rate, oa.non_cash_tax_rate, oa.is_primary, oa.created_at
	FROM organization_activities oa
	JOIN activity_codes ac ON ac.id = oa.activity_code_id
`

func (s *OrganizationStore) ListActivities(ctx context.Context, profileID string) ([]models.OrganizationActivity, error) {
	var rows []models.OrganizationActivity
	err := s.db.SelectContext(ctx, &rows, activitySelect+` WHERE oa.profile_id = $1 ORDER BY oa.is_primary DESC, ac.code`, profileID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.OrganizationActivity{}
	}
	return rows, nil
}

func (s *OrganizationStore) GetActivity(ctx context.Context, q Getter, profileID string, activityID int64) (models.OrganizationActivity, error) {
	var activity models.OrganizationActivity
	err := q.GetContext(ctx, &activity, activitySelect+` WHERE oa.profile_id = $1 AND oa.id = $2`, profileID, activityID)
	return activity, err
}

func (s *OrganizationStore) AddActivity(ctx context.Context, tx Getter, a models.OrganizationActivity) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id, `
		INSERT INTO organization_activities (profile_id, activity_code_id, cash_tax_rate, non_cash_tax_rate, is_primary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, a.ProfileID, a.ActivityCodeID, a.CashTaxRate, a.NonCashTaxRate, a.IsPrimary)
	return id, err
}

func (s *OrganizationStore) UpdateActivity(ctx context.Context, tx Execer, a models.OrganizationActivity) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE organization_activities
		SET cash_tax_rate = $1, non_cash_tax_rate = $2, is_primary = $3
		WHERE id = $4 AND profile_id = $5
	`, a.CashTaxRate, a.NonCashTaxRate, a.IsPrimary, a.ID, a.ProfileID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *OrganizationStore) DeleteActivity(ctx context.Context, tx Execer, profileID string, activityID int64) (int64, error) {
	result, err := tx.ExecContext(ctx, `DELETE FROM organization_activities WHERE id = $1 AND profile_id = $2`, activityID, profileID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type ActivityCounts struct {
	Total   int64 `db:"total"`
	Primary int64 `db:"primary_count"`
}

func (s *OrganizationStore) CountActivities(ctx context.Context, q Getter, profileID string) (ActivityCounts, error) {
	var counts ActivityCounts
	err := q.GetContext(ctx, &counts, `
		SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_primary) AS primary_count
		FROM organization_activities
		WHERE profile_id = $1
	`, profileID)
	return counts, err
}

// HasOtherPrimary reports a primary activity other than exceptID.
func (s *OrganizationStore) HasOtherPrimary(ctx context.Context, q Getter, profileID string, exceptID int64) (bool, error) {
	var exists bool
	err := q.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM organization_activities WHERE profile_id = $1 AND is_primary AND id <> $2)
	`, profileID, exceptID)
	return exists, err
}

// ActivityRates reads the rates the user's organization configured for an
// activity code. It returns sql.ErrNoRows when the code is not configured.
func (s *OrganizationStore) ActivityRates(ctx context.Context, q Getter, userID string, activityCodeID int64) (models.ActivityRates, error) {
	var rates models.ActivityRates
	err := q.GetContext(ctx, &rates, `
		SELECT oa.cash_tax_rate, oa.non_cash_tax_rate
		FROM organization_activities oa
		JOIN organization_profiles op ON op.id = oa.profile_id
		WHERE op.user_id = $1 AND oa.activity_code_id = $2
	`, userID, activityCodeID)
	return rates, err
}
