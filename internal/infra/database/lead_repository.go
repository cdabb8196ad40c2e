package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

const leadColumns = `id, institut_name, contact_name, email, phone, street, postal_code, city, country,
	website, status, qualification, score, probability, estimated_value_cents, source, assigned_to,
	last_contact_date, next_follow_up_date, organization_id, converted_at, created_at, updated_at, updated_by`

func (r *LeadRepository) Create(ctx context.Context, l *entity.Lead) error {
	query := `
		INSERT INTO leads (id, institut_name, contact_name, email, phone, street, postal_code, city, country,
			website, status, qualification, score, probability, estimated_value_cents, source, assigned_to,
			last_contact_date, next_follow_up_date, created_at, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`
	_, err := r.DB.ExecContext(ctx, query,
		l.ID,
		l.InstitutName,
		nullString(l.ContactName),
		nullString(l.Email),
		nullString(l.Phone),
		nullString(l.Address.Street),
		nullString(l.Address.PostalCode),
		nullString(l.Address.City),
		nullString(l.Address.Country),
		nullString(l.Website),
		l.Status,
		qualificationArg(l.Qualification),
		l.Score,
		l.Probability,
		l.EstimatedValueCents,
		nullString(l.Source),
		nullString(l.AssignedTo),
		l.LastContactDate,
		l.NextFollowUpDate,
		l.CreatedAt,
		l.UpdatedAt,
		nullString(l.UpdatedBy),
	)
	if err != nil {
		if uniqueConstraint(err) != "" {
			return entity.ErrConflict
		}
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find lead: %w", err)
	}
	return lead, nil
}

func (r *LeadRepository) List(ctx context.Context, f entity.LeadFilter) ([]*entity.Lead, error) {
	statuses := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		statuses[i] = string(s)
	}

	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE (cardinality($1::text[]) = 0 OR status = ANY($1::text[]))
		  AND ($2::text = '' OR assigned_to = $2::text)
		ORDER BY created_at DESC, id
		OFFSET $3`
	args := []any{pq.Array(statuses), f.AssignedTo, f.Offset}
	if f.Limit > 0 {
		query += ` LIMIT $4`
		args = append(args, f.Limit)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	out := []*entity.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

// Update never writes organization_id, converted_at or last_contact_date.
func (r *LeadRepository) Update(ctx context.Context, l *entity.Lead) error {
	query := `
		UPDATE leads SET
			institut_name = $2, contact_name = $3, email = $4, phone = $5,
			street = $6, postal_code = $7, city = $8, country = $9, website = $10,
			status = $11, qualification = $12, score = $13, probability = $14,
			estimated_value_cents = $15, source = $16, assigned_to = $17,
			next_follow_up_date = $18, updated_at = $19, updated_by = $20
		WHERE id = $1 AND (organization_id IS NULL OR $11::text = 'WON')
	`
	res, err := r.DB.ExecContext(ctx, query,
		l.ID,
		l.InstitutName,
		nullString(l.ContactName),
		nullString(l.Email),
		nullString(l.Phone),
		nullString(l.Address.Street),
		nullString(l.Address.PostalCode),
		nullString(l.Address.City),
		nullString(l.Address.Country),
		nullString(l.Website),
		l.Status,
		qualificationArg(l.Qualification),
		l.Score,
		l.Probability,
		l.EstimatedValueCents,
		nullString(l.Source),
		nullString(l.AssignedTo),
		l.NextFollowUpDate,
		l.UpdatedAt,
		nullString(l.UpdatedBy),
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	// zero rows: missing, or converted and asked to leave WON
	var converted bool
	err = r.DB.QueryRowContext(ctx, `SELECT organization_id IS NOT NULL FROM leads WHERE id = $1`, l.ID).Scan(&converted)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.ErrLeadNotFound
	}
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if converted {
		return entity.ErrConvertedLeadLocked
	}
	return fmt.Errorf("update lead %s: no row written", l.ID)
}

// Delete relies on ON DELETE CASCADE for interactions, bookings and intents.
// Delete takes the same row lock as ConversionRepository.Claim, so a lead
// cannot disappear while a conversion of it is being claimed or is still
// unfinished. Its PENDING or PROVISIONED intent is the only trace of a
// tenant that may already exist.
func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var orgID sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT organization_id FROM leads WHERE id = $1 FOR UPDATE`, id).Scan(&orgID)
		if errors.Is(err, sql.ErrNoRows) {
			return entity.ErrLeadNotFound
		}
		if err != nil {
			return fmt.Errorf("delete lead: %w", err)
		}
		if orgID.Valid {
			return entity.ErrConvertedLeadDelete
		}

		var unfinished bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM conversion_intents WHERE lead_id = $1 AND state IN ('PENDING', 'PROVISIONED')
			)
		`, id).Scan(&unfinished)
		if err != nil {
			return fmt.Errorf("delete lead: %w", err)
		}
		if unfinished {
			return entity.ErrConversionInProgress
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete lead: %w", err)
		}
		return nil
	})
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var (
		l                                              entity.Lead
		contact, email, phone, street, postal, city    sql.NullString
		country, website, qualification, source, owner sql.NullString
		orgID, updatedBy                               sql.NullString
		lastContact, nextFollowUp, convertedAt         sql.NullTime
	)
	err := row.Scan(
		&l.ID, &l.InstitutName, &contact, &email, &phone, &street, &postal, &city, &country,
		&website, &l.Status, &qualification, &l.Score, &l.Probability, &l.EstimatedValueCents, &source, &owner,
		&lastContact, &nextFollowUp, &orgID, &convertedAt, &l.CreatedAt, &l.UpdatedAt, &updatedBy,
	)
	if err != nil {
		return nil, err
	}

	l.ContactName = fromNull(contact)
	l.Email = fromNull(email)
	l.Phone = fromNull(phone)
	l.Address = entity.Address{
		Street:     fromNull(street),
		PostalCode: fromNull(postal),
		City:       fromNull(city),
		Country:    fromNull(country),
	}
	l.Website = fromNull(website)
	if qualification.Valid {
		q := entity.Qualification(qualification.String)
		l.Qualification = &q
	}
	l.Source = fromNull(source)
	l.AssignedTo = fromNull(owner)
	l.LastContactDate = fromNullTime(lastContact)
	l.NextFollowUpDate = fromNullTime(nextFollowUp)
	l.OrganizationID = fromNull(orgID)
	l.ConvertedAt = fromNullTime(convertedAt)
	l.UpdatedBy = fromNull(updatedBy)
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return &l, nil
}

func qualificationArg(q *entity.Qualification) *string {
	if q == nil {
		return nil
	}
	s := string(*q)
	return &s
}
