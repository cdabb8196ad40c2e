package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

type OrganizationRepository struct {
	DB *sql.DB
}

func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{DB: db}
}

func (r *OrganizationRepository) Create(ctx context.Context, o *entity.Organization) error {
	query := `
		INSERT INTO organizations (id, name, slug, plan, owner_name, owner_email, owner_phone,
			street, postal_code, city, country, legal_name, siret, source_lead_id,
			billing_status, billing_customer_id, mandate_id, subscription_id,
			admin_email, admin_password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err := r.DB.ExecContext(ctx, query,
		o.ID,
		o.Name,
		o.Slug,
		o.Plan,
		nullString(o.OwnerName),
		nullString(o.OwnerEmail),
		nullString(o.OwnerPhone),
		nullString(o.Address.Street),
		nullString(o.Address.PostalCode),
		nullString(o.Address.City),
		nullString(o.Address.Country),
		nullString(o.LegalName),
		nullString(o.SIRET),
		nullString(o.SourceLeadID),
		o.BillingStatus,
		nullString(o.BillingCustomerID),
		nullString(o.MandateID),
		nullString(o.SubscriptionID),
		o.AdminEmail,
		o.AdminPasswordHash,
		o.CreatedAt,
	)
	switch uniqueConstraint(err) {
	case "":
	case "organizations_slug_key":
		return entity.ErrSlugTaken
	default:
		return entity.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

const organizationColumns = `id, name, slug, plan, owner_name, owner_email, owner_phone,
	street, postal_code, city, country, legal_name, siret, source_lead_id,
	billing_status, billing_customer_id, mandate_id, subscription_id,
	admin_email, admin_password_hash, created_at`

func (r *OrganizationRepository) FindByID(ctx context.Context, id string) (*entity.Organization, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = $1`, id)
	o, err := scanOrganization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find organization: %w", err)
	}
	return o, nil
}

// FindBySourceLead returns the newest organization provisioned from leadID.
func (r *OrganizationRepository) FindBySourceLead(ctx context.Context, leadID string) (*entity.Organization, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+organizationColumns+`
		FROM organizations WHERE source_lead_id = $1
		ORDER BY created_at DESC LIMIT 1
	`, leadID)
	o, err := scanOrganization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find organization by lead: %w", err)
	}
	return o, nil
}

func scanOrganization(row rowScanner) (*entity.Organization, error) {
	var (
		o                                                 entity.Organization
		ownerName, ownerEmail, ownerPhone, street, postal sql.NullString
		city, country, legalName, siret, sourceLead       sql.NullString
		customerID, mandateID, subscriptionID             sql.NullString
	)
	err := row.Scan(
		&o.ID, &o.Name, &o.Slug, &o.Plan, &ownerName, &ownerEmail, &ownerPhone,
		&street, &postal, &city, &country, &legalName, &siret, &sourceLead,
		&o.BillingStatus, &customerID, &mandateID, &subscriptionID,
		&o.AdminEmail, &o.AdminPasswordHash, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.OwnerName = fromNull(ownerName)
	o.OwnerEmail = fromNull(ownerEmail)
	o.OwnerPhone = fromNull(ownerPhone)
	o.Address = entity.Address{
		Street:     fromNull(street),
		PostalCode: fromNull(postal),
		City:       fromNull(city),
		Country:    fromNull(country),
	}
	o.LegalName = fromNull(legalName)
	o.SIRET = fromNull(siret)
	o.SourceLeadID = fromNull(sourceLead)
	o.BillingCustomerID = fromNull(customerID)
	o.MandateID = fromNull(mandateID)
	o.SubscriptionID = fromNull(subscriptionID)
	o.CreatedAt = o.CreatedAt.UTC()
	return &o, nil
}

func (r *OrganizationRepository) UpdateBilling(ctx context.Context, o *entity.Organization) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE organizations
		SET billing_status = $2, billing_customer_id = $3, mandate_id = $4, subscription_id = $5
		WHERE id = $1
	`, o.ID, o.BillingStatus, nullString(o.BillingCustomerID), nullString(o.MandateID), nullString(o.SubscriptionID))
	if err != nil {
		return fmt.Errorf("update organization billing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrOrganizationNotFound
	}
	return nil
}

func (r *OrganizationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrOrganizationNotFound
	}
	return nil
}
