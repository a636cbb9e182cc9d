package store

import (
	"context"

	"taxledger/internal/ledger"
	"taxledger/internal/models"
)

type ActivityStore struct {
	db DB
}

func NewActivityStore(db DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// Search matches the code prefix or a name substring.
func (s *ActivityStore) Search(ctx context.Context, search string, limit int) ([]models.ActivityCode, error) {
	var rows []models.ActivityCode
	var err error
	if search == "" {
		err = s.db.SelectContext(ctx, &rows, `SELECT id, code, section, name FROM activity_codes ORDER BY code LIMIT $1`, limit)
	} else {
		pattern := ledger.EscapeLike(search)
		err = s.db.SelectContext(ctx, &rows, `
			SELECT id, code, section, name
			FROM activity_codes
			WHERE code ILIKE $1 ESCAPE '\' OR name ILIKE $2 ESCAPE '\'
			ORDER BY code
			LIMIT $3
		`, pattern+"%", "%"+pattern+"%", limit)
	}
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.ActivityCode{}
	}
	return rows, nil
}

func (s *ActivityStore) GetByID(ctx context.Context, q Getter, id int64) (models.ActivityCode, error) {
	var code models.ActivityCode
	err := q.GetContext(ctx, &code, `SELECT id, code, section, name FROM activity_codes WHERE id = $1`, id)
	return code, err
}

func (s *ActivityStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, `SELECT count(*) FROM activity_codes`)
	return count, err
}

// InsertCodes adds codes that are not present yet and returns how many rows
// were written.
func (s *ActivityStore) InsertCodes(ctx context.Context, tx Execer, codes []models.ActivityCode) (int64, error) {
	var inserted int64
	for _, code := range codes {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO activity_codes (code, section, name)
			VALUES ($1, $2, $3)
			ON CONFLICT (code) DO NOTHING
		`, code.Code, code.Section, code.Name)
		if err != nil {
			return inserted, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += n
	}
	return inserted, nil
}
