package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/showroom/internal/database"
	"github.com/BradenHooton/showroom/internal/models"
	"github.com/jackc/pgx/v5"
)

const dealershipInquiryColumns = `id, company_name, contact_name, email, phone, location, monthly_volume, message,
	priority, status, ip_address, user_agent, metadata, assigned_to::text, created_at, updated_at`

type DealershipInquiryRepository struct {
	submissionTable
}

func NewDealershipInquiryRepository(db *database.DB) *DealershipInquiryRepository {
	return &DealershipInquiryRepository{submissionTable{pool: db.Pool, name: "dealership_inquiries"}}
}

func scanDealershipInquiryRow(row rowScanner) (*models.DealershipInquiry, error) {
	var inq models.DealershipInquiry

	err := row.Scan(
		&inq.ID, &inq.CompanyName, &inq.ContactName, &inq.Email, &inq.Phone, &inq.Location,
		&inq.MonthlyVolume, &inq.Message, &inq.Priority, &inq.Status,
		&inq.IPAddress, &inq.UserAgent, &inq.Metadata, &inq.AssignedTo,
		&inq.CreatedAt, &inq.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if inq.Metadata.Flags == nil {
		inq.Metadata.Flags = []models.SubmissionFlag{}
	}
	return &inq, nil
}

func scanDealershipInquiryRows(rows pgx.Rows) ([]*models.DealershipInquiry, error) {
	defer rows.Close()

	out := make([]*models.DealershipInquiry, 0)
	for rows.Next() {
		inq, err := scanDealershipInquiryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dealership inquiry: %w", err)
		}
		out = append(out, inq)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dealership inquiry rows: %w", err)
	}
	return out, nil
}

func (r *DealershipInquiryRepository) Create(ctx context.Context, inq *models.DealershipInquiry) (*models.DealershipInquiry, error) {
	if inq.Status == "" {
		inq.Status = models.SubmissionNew
	}

	query := `
		INSERT INTO dealership_inquiries (company_name, contact_name, email, phone, location, monthly_volume, message,
			priority, status, ip_address, user_agent, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + dealershipInquiryColumns

	return scanDealershipInquiryRow(r.pool.QueryRow(ctx, query,
		inq.CompanyName, inq.ContactName, inq.Email, inq.Phone, inq.Location, inq.MonthlyVolume, inq.Message,
		inq.Priority, inq.Status, inq.IPAddress, inq.UserAgent, inq.Metadata,
	))
}

func (r *DealershipInquiryRepository) GetByID(ctx context.Context, id string) (*models.DealershipInquiry, error) {
	return scanDealershipInquiryRow(r.pool.QueryRow(ctx, `SELECT `+dealershipInquiryColumns+` FROM dealership_inquiries WHERE id = $1`, id))
}

func (r *DealershipInquiryRepository) List(ctx context.Context, status models.SubmissionStatus, limit, offset int) ([]*models.DealershipInquiry, error) {
	limit, offset = normalizePage(limit, offset)

	query := `
		SELECT ` + dealershipInquiryColumns + `
		FROM dealership_inquiries
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query dealership inquiries: %w", err)
	}

	return scanDealershipInquiryRows(rows)
}
