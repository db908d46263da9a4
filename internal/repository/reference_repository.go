package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/gradecraft/assessment-service/internal/models"
)

type ReferenceRepository interface {
	Create(ctx context.Context, doc *models.ReferenceDocument) error
	GetByID(ctx context.Context, id string) (*models.ReferenceDocument, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.ReferenceDocument, error)
	Delete(ctx context.Context, id string) error
}

type referenceRepository struct {
	*PostgresRepository
}

func NewReferenceRepository(db *sql.DB, logger zerolog.Logger) ReferenceRepository {
	return &referenceRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *referenceRepository) Create(ctx context.Context, doc *models.ReferenceDocument) error {
	query := `
		INSERT INTO reference_documents (id, assignment_id, title, object_key, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.AssignmentID,
		doc.Title,
		doc.ObjectKey,
		doc.CreatedAt,
	)

	return err
}

func (r *referenceRepository) GetByID(ctx context.Context, id string) (*models.ReferenceDocument, error) {
	query := `
		SELECT id, assignment_id, title, object_key, created_at
		FROM reference_documents
		WHERE id = $1
	`

	doc := &models.ReferenceDocument{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.AssignmentID,
		&doc.Title,
		&doc.ObjectKey,
		&doc.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return doc, nil
}

func (r *referenceRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.ReferenceDocument, error) {
	query := `
		SELECT id, assignment_id, title, object_key, created_at
		FROM reference_documents
		WHERE assignment_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []models.ReferenceDocument
	for rows.Next() {
		var doc models.ReferenceDocument
		err := rows.Scan(
			&doc.ID,
			&doc.AssignmentID,
			&doc.Title,
			&doc.ObjectKey,
			&doc.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

func (r *referenceRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM reference_documents WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
