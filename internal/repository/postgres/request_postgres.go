package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/princedesai012/Doc-Flow/internal/model"
	"github.com/princedesai012/Doc-Flow/internal/repository"
)

// RequestPostgres is a PostgreSQL implementation of
// repository.RequestRepository. It uses database/sql with parameterized
// queries and contains no business logic.
//
// The requested type list is not stored separately: documents are created
// one per requested type in declaration order, so the list is rebuilt from
// the documents rows on read.
type RequestPostgres struct {
	db *sql.DB
}

// NewRequestPostgres creates a new RequestPostgres repository.
func NewRequestPostgres(db *sql.DB) *RequestPostgres {
	return &RequestPostgres{db: db}
}

var _ repository.RequestRepository = (*RequestPostgres)(nil)

const uniqueViolation = "23505"

// Create inserts the request and its documents in one transaction.
func (r *RequestPostgres) Create(ctx context.Context, req *model.Request) (*model.Request, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const qReq = `
		INSERT INTO requests (id, client_name, contact_handle, access_token, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.ExecContext(ctx, qReq,
		req.ID,
		req.ClientName,
		req.ContactHandle,
		req.AccessToken,
		req.Status,
		req.CreatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, repository.ErrDuplicateToken
		}
		return nil, fmt.Errorf("insert request: %w", err)
	}

	const qDoc = `
		INSERT INTO documents (id, request_id, position, doc_type, status)
		VALUES ($1, $2, $3, $4, $5)
	`
	for i := range req.Documents {
		d := &req.Documents[i]
		if _, err := tx.ExecContext(ctx, qDoc, d.ID, req.ID, i, d.Type, d.Status); err != nil {
			return nil, fmt.Errorf("insert document: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return req, nil
}

const requestColumns = `id, client_name, contact_handle, access_token, status, created_at`

// FindByID fetches a request with its documents.
func (r *RequestPostgres) FindByID(ctx context.Context, id string) (*model.Request, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindByToken fetches the request owning the access token.
func (r *RequestPostgres) FindByToken(ctx context.Context, token string) (*model.Request, error) {
	return r.findOne(ctx, `WHERE access_token = $1`, token)
}

func (r *RequestPostgres) findOne(ctx context.Context, where string, arg any) (*model.Request, error) {
	q := `SELECT ` + requestColumns + ` FROM requests ` + where
	row := r.db.QueryRowContext(ctx, q, arg)

	var req model.Request
	if err := row.Scan(
		&req.ID,
		&req.ClientName,
		&req.ContactHandle,
		&req.AccessToken,
		&req.Status,
		&req.CreatedAt,
	); err != nil {
		return nil, err
	}

	docs, err := r.loadDocuments(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	attachDocuments(&req, docs)
	return &req, nil
}

func (r *RequestPostgres) loadDocuments(ctx context.Context, requestID string) ([]model.Document, error) {
	const q = `
		SELECT id, doc_type, status, asset_ref, rejection_reason, submitted_at
		FROM documents
		WHERE request_id = $1
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, q, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// List returns every request newest first, documents attached via a single
// joined query.
func (r *RequestPostgres) List(ctx context.Context) ([]model.Request, error) {
	const q = `
		SELECT r.id, r.client_name, r.contact_handle, r.access_token, r.status, r.created_at,
		       d.id, d.doc_type, d.status, d.asset_ref, d.rejection_reason, d.submitted_at
		FROM requests r
		LEFT JOIN documents d ON d.request_id = r.id
		ORDER BY r.created_at DESC, r.id, d.position
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]model.Request, 0)
	index := make(map[string]int)
	for rows.Next() {
		var req model.Request
		var docID, docType, docStatus sql.NullString
		var assetRef, reason sql.NullString
		var submittedAt sql.NullTime
		if err := rows.Scan(
			&req.ID,
			&req.ClientName,
			&req.ContactHandle,
			&req.AccessToken,
			&req.Status,
			&req.CreatedAt,
			&docID,
			&docType,
			&docStatus,
			&assetRef,
			&reason,
			&submittedAt,
		); err != nil {
			return nil, err
		}

		i, ok := index[req.ID]
		if !ok {
			i = len(requests)
			index[req.ID] = i
			requests = append(requests, req)
		}
		if docID.Valid {
			doc := model.Document{
				ID:              docID.String,
				Type:            docType.String,
				Status:          model.DocumentStatus(docStatus.String),
				AssetRef:        assetRef.String,
				RejectionReason: reason.String,
			}
			if submittedAt.Valid {
				t := submittedAt.Time
				doc.SubmittedAt = &t
			}
			requests[i].Documents = append(requests[i].Documents, doc)
			requests[i].RequestedDocTypes = append(requests[i].RequestedDocTypes, doc.Type)
		}
	}
	return requests, rows.Err()
}

// SetStatus writes only the aggregate status column.
func (r *RequestPostgres) SetStatus(ctx context.Context, id string, status model.RequestStatus) error {
	const q = `UPDATE requests SET status = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateDocument writes the document's mutable fields and the aggregate
// status atomically, then returns the fresh request.
func (r *RequestPostgres) UpdateDocument(ctx context.Context, requestID string, doc *model.Document, status model.RequestStatus) (*model.Request, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const qDoc = `
		UPDATE documents
		SET status = $3, asset_ref = $4, rejection_reason = $5, submitted_at = $6
		WHERE id = $1 AND request_id = $2
	`
	res, err := tx.ExecContext(ctx, qDoc,
		doc.ID,
		requestID,
		doc.Status,
		nullString(doc.AssetRef),
		nullString(doc.RejectionReason),
		doc.SubmittedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, sql.ErrNoRows
	}

	const qReq = `UPDATE requests SET status = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, qReq, requestID, status); err != nil {
		return nil, fmt.Errorf("update request status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return r.FindByID(ctx, requestID)
}

// Delete removes a request; documents go with it via ON DELETE CASCADE.
func (r *RequestPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM requests WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func attachDocuments(req *model.Request, docs []model.Document) {
	req.Documents = docs
	req.RequestedDocTypes = make([]string, len(docs))
	for i := range docs {
		req.RequestedDocTypes[i] = docs[i].Type
	}
}

func scanDocument(rows *sql.Rows) (model.Document, error) {
	var d model.Document
	var assetRef, reason sql.NullString
	var submittedAt sql.NullTime
	if err := rows.Scan(&d.ID, &d.Type, &d.Status, &assetRef, &reason, &submittedAt); err != nil {
		return model.Document{}, err
	}
	d.AssetRef = assetRef.String
	d.RejectionReason = reason.String
	if submittedAt.Valid {
		t := submittedAt.Time
		d.SubmittedAt = &t
	}
	return d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
