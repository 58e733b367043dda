package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository"
)

const documentColumns = `id, name, url, type, created_at, updated_at, patient_id`

type documentRepository struct {
	BaseRepository
}

func NewDocumentRepository(base BaseRepository) repository.DocumentRepository {
	return &documentRepository{base}
}

func (r *documentRepository) Create(ctx context.Context, doc *model.PatientDocument) error {
	query := `
		INSERT INTO patient_documents (name, url, type, patient_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		doc.Name,
		doc.URL,
		doc.Type,
		doc.PatientID,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
	return mapError(err)
}

func (r *documentRepository) Get(ctx context.Context, id int64) (*model.PatientDocument, error) {
	var doc model.PatientDocument
	if err := r.db.GetContext(ctx, &doc, `SELECT `+documentColumns+` FROM patient_documents WHERE id = $1`, id); err != nil {
		return nil, mapError(err)
	}
	return &doc, nil
}

func (r *documentRepository) List(ctx context.Context) ([]*model.PatientDocument, error) {
	return r.selectDocs(ctx, `SELECT `+documentColumns+` FROM patient_documents ORDER BY id`)
}

func (r *documentRepository) ListByPatient(ctx context.Context, patientID int64) ([]*model.PatientDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM patient_documents WHERE patient_id = $1 ORDER BY created_at DESC, id DESC`
	return r.selectDocs(ctx, query, patientID)
}

func (r *documentRepository) ListByPatientAndType(ctx context.Context, patientID int64, docType model.DocumentType) ([]*model.PatientDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM patient_documents
		WHERE patient_id = $1 AND type = $2
		ORDER BY created_at DESC, id DESC
	`
	return r.selectDocs(ctx, query, patientID, docType)
}

func (r *documentRepository) ListByPatientAfter(ctx context.Context, patientID int64, after time.Time) ([]*model.PatientDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM patient_documents
		WHERE patient_id = $1 AND created_at >= $2
		ORDER BY created_at DESC, id DESC
	`
	return r.selectDocs(ctx, query, patientID, after)
}

func (r *documentRepository) selectDocs(ctx context.Context, query string, args ...interface{}) ([]*model.PatientDocument, error) {
	docs := []*model.PatientDocument{}
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list patient documents: %w", err)
	}
	return docs, nil
}

func (r *documentRepository) Update(ctx context.Context, doc *model.PatientDocument) error {
	query := `
		UPDATE patient_documents SET
			name = $1,
			url = $2,
			type = $3,
			updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, doc.Name, doc.URL, doc.Type, doc.ID).Scan(&doc.UpdatedAt)
	return mapError(err)
}

func (r *documentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM patient_documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRows(res)
}
