package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princedesai012/Doc-Flow/internal/model"
	"github.com/princedesai012/Doc-Flow/internal/repository"
)

var requestCols = []string{"id", "client_name", "contact_handle", "access_token", "status", "created_at"}
var documentCols = []string{"id", "doc_type", "status", "asset_ref", "rejection_reason", "submitted_at"}

func newTestRequest() *model.Request {
	return &model.Request{
		ID:            "req-1",
		ClientName:    "A",
		ContactHandle: "919876543210",
		AccessToken:   "tok-1",
		Status:        model.StatusSent,
		CreatedAt:     time.Now().UTC(),
		Documents: []model.Document{
			{ID: "doc-1", Type: "PAN", Status: model.DocPending},
			{ID: "doc-2", Type: "Aadhaar", Status: model.DocPending},
		},
	}
}

func TestRequestPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRequestPostgres(db)
	ctx := context.Background()
	req := newTestRequest()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO requests").
		WithArgs(req.ID, req.ClientName, req.ContactHandle, req.AccessToken, req.Status, req.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO documents").
		WithArgs("doc-1", req.ID, 0, "PAN", model.DocPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO documents").
		WithArgs("doc-2", req.ID, 1, "Aadhaar", model.DocPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	out, err := repo.Create(ctx, req)
	assert.NoError(t, err)
	assert.Equal(t, req.ID, out.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestPostgres_Create_DuplicateToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRequestPostgres(db)
	req := newTestRequest()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO requests").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "requests_access_token_key"})
	mock.ExpectRollback()

	_, err = repo.Create(context.Background(), req)
	assert.ErrorIs(t, err, repository.ErrDuplicateToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestPostgres_FindByToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRequestPostgres(db)
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM requests WHERE access_token =").
			WithArgs("tok-1").
			WillReturnRows(sqlmock.NewRows(requestCols).
				AddRow("req-1", "A", "919876543210", "tok-1", "Viewed", now))
		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs("req-1").
			WillReturnRows(sqlmock.NewRows(documentCols).
				AddRow("doc-1", "PAN", "Submitted", "images/PAN_abc", nil, now).
				AddRow("doc-2", "Aadhaar", "Pending", nil, nil, nil))

		req, err := repo.FindByToken(context.Background(), "tok-1")
		require.NoError(t, err)
		assert.Equal(t, model.StatusViewed, req.Status)
		assert.Equal(t, []string{"PAN", "Aadhaar"}, req.RequestedDocTypes)
		assert.Equal(t, "images/PAN_abc", req.Documents[0].AssetRef)
		assert.NotNil(t, req.Documents[0].SubmittedAt)
		assert.Nil(t, req.Documents[1].SubmittedAt)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM requests WHERE access_token =").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByToken(context.Background(), "missing")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRequestPostgres(db)
	now := time.Now()

	cols := append(append([]string{}, requestCols...), documentCols...)
	mock.ExpectQuery("SELECT (.+) FROM requests r").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("req-2", "B", "h2", "tok-2", "Sent", now, "doc-3", "Passport", "Pending", nil, nil, nil).
			AddRow("req-1", "A", "h1", "tok-1", "Partial", now.Add(-time.Hour), "doc-1", "PAN", "Rejected", "images/x", "blurry", now).
			AddRow("req-1", "A", "h1", "tok-1", "Partial", now.Add(-time.Hour), "doc-2", "Aadhaar", "Submitted", "images/y", nil, now))

	out, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "req-2", out[0].ID)
	assert.Len(t, out[1].Documents, 2)
	assert.Equal(t, "blurry", out[1].Documents[0].RejectionReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestPostgres_UpdateDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRequestPostgres(db)
	now := time.Now()
	doc := &model.Document{
		ID:          "doc-1",
		Type:        "PAN",
		Status:      model.DocSubmitted,
		AssetRef:    "images/PAN_abc",
		SubmittedAt: &now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", "req-1", model.DocSubmitted,
			sql.NullString{String: "images/PAN_abc", Valid: true},
			sql.NullString{},
			doc.SubmittedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE requests").
		WithArgs("req-1", model.StatusPartial).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT (.+) FROM requests WHERE id =").
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows(requestCols).
			AddRow("req-1", "A", "h1", "tok-1", "Partial", now))
	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows(documentCols).
			AddRow("doc-1", "PAN", "Submitted", "images/PAN_abc", nil, now).
			AddRow("doc-2", "Aadhaar", "Pending", nil, nil, nil))

	out, err := repo.UpdateDocument(context.Background(), "req-1", doc, model.StatusPartial)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPartial, out.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestPostgres_UpdateDocument_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRequestPostgres(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = repo.UpdateDocument(context.Background(), "req-1",
		&model.Document{ID: "nope", Status: model.DocApproved}, model.StatusSubmitted)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRequestPostgres(db)

	t.Run("deleted", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM requests").
			WithArgs("req-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.Delete(context.Background(), "req-1"))
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM requests").
			WithArgs("nope").
			WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.Delete(context.Background(), "nope"), sql.ErrNoRows)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
