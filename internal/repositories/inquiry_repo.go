package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/showroom/internal/database"
	"github.com/BradenHooton/showroom/internal/models"
	"github.com/jackc/pgx/v5"
)

const inquiryColumns = `id, name, email, phone, company, subject, message, inquiry_type,
	priority, status, ip_address, user_agent, metadata, assigned_to::text, created_at, updated_at`

// InquiryRepository stores general contact-form submissions.
type InquiryRepository struct {
	submissionTable
}

func NewInquiryRepository(db *database.DB) *InquiryRepository {
	return &InquiryRepository{submissionTable{pool: db.Pool, name: "inquiries"}}
}

func scanInquiryRow(row rowScanner) (*models.Inquiry, error) {
	var inq models.Inquiry

	err := row.Scan(
		&inq.ID, &inq.Name, &inq.Email, &inq.Phone, &inq.Company, &inq.Subject,
		&inq.Message, &inq.InquiryType, &inq.Priority, &inq.Status,
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

func scanInquiryRows(rows pgx.Rows) ([]*models.Inquiry, error) {
	defer rows.Close()

	out := make([]*models.Inquiry, 0)
	for rows.Next() {
		inq, err := scanInquiryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inquiry: %w", err)
		}
		out = append(out, inq)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inquiry rows: %w", err)
	}
	return out, nil
}

// Create inserts an accepted inquiry. Priority and metadata are stored as given.
func (r *InquiryRepository) Create(ctx context.Context, inq *models.Inquiry) (*models.Inquiry, error) {
	if inq.Status == "" {
		inq.Status = models.SubmissionNew
	}

	query := `
		INSERT INTO inquiries (name, email, phone, company, subject, message, inquiry_type,
			priority, status, ip_address, user_agent, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + inquiryColumns

	return scanInquiryRow(r.pool.QueryRow(ctx, query,
		inq.Name, inq.Email, inq.Phone, inq.Company, inq.Subject, inq.Message, inq.InquiryType,
		inq.Priority, inq.Status, inq.IPAddress, inq.UserAgent, inq.Metadata,
	))
}

func (r *InquiryRepository) GetByID(ctx context.Context, id string) (*models.Inquiry, error) {
	return scanInquiryRow(r.pool.QueryRow(ctx, `SELECT `+inquiryColumns+` FROM inquiries WHERE id = $1`, id))
}

// List returns inquiries newest first. An empty status lists all of them.
func (r *InquiryRepository) List(ctx context.Context, status models.SubmissionStatus, limit, offset int) ([]*models.Inquiry, error) {
	limit, offset = normalizePage(limit, offset)

	query := `
		SELECT ` + inquiryColumns + `
		FROM inquiries
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query inquiries: %w", err)
	}

	return scanInquiryRows(rows)
}
