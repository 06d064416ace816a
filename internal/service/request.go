package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/princedesai012/Doc-Flow/internal/model"
	"github.com/princedesai012/Doc-Flow/internal/notify"
	"github.com/princedesai012/Doc-Flow/internal/repository"
	"github.com/princedesai012/Doc-Flow/internal/storage"
)

var (
	ErrEmptyDocTypes     = errors.New("requested document types must not be empty")
	ErrNotFound          = errors.New("request not found")
	ErrLinkExpired       = errors.New("link expired")
	ErrInvalidDocType    = errors.New("document type was not requested")
	ErrInvalidTransition = errors.New("document status transition not allowed")
	ErrReasonRequired    = errors.New("rejection reason is required")
	ErrEmptyPayload      = errors.New("payload is empty")
	ErrStorageFailed     = errors.New("storage unavailable")
)

// EventPublisher receives every committed request mutation for fan-out to
// connected observers.
type EventPublisher interface {
	RequestUpdated(req *model.Request)
	RequestDeleted(id string)
}

// RequestService owns the document-request lifecycle: it is the only writer
// of request and document status, and every client read passes through its
// token gate.
type RequestService interface {
	// Create validates the requested type list, generates a unique access
	// token and creates the request with one Pending document per type. The
	// client is notified with the upload link best-effort.
	Create(ctx context.Context, clientName, contactHandle string, docTypes []string) (*model.Request, error)

	// List returns all requests, newest first. Doubles as the snapshot pull
	// for observers catching up after (re)connecting.
	List(ctx context.Context) ([]model.Request, error)

	// Get returns one request by id for operator views.
	Get(ctx context.Context, id string) (*model.Request, error)

	// Resolve is the access token gate. A fully submitted request is
	// terminal for the client path; a first read flips Sent to Viewed.
	Resolve(ctx context.Context, token string) (*model.Request, error)

	// Ingest accepts one uploaded payload for a requested document type,
	// persists it through the storage capability and records the upload.
	// This is the only path that moves a document out of Pending or
	// Rejected.
	Ingest(ctx context.Context, token, docType string, payload io.Reader, size int64, mimeType string) (*model.Request, error)

	// SetDocumentStatus applies an operator review decision. Only
	// Submitted -> Approved and Submitted -> Rejected are permitted; a
	// rejection requires a reason and re-opens the request.
	SetDocumentStatus(ctx context.Context, requestID, docID string, status model.DocumentStatus, reason string) (*model.Request, error)

	// Delete removes the request permanently.
	Delete(ctx context.Context, id string) error
}

type requestService struct {
	repo     repository.RequestRepository
	store    storage.Storage
	sender   notify.Sender
	events   EventPublisher
	linkBase string
	log      *slog.Logger
}

// NewRequestService constructs the lifecycle service. linkBase is the public
// base URL embedded in client-facing messages.
func NewRequestService(repo repository.RequestRepository, store storage.Storage, sender notify.Sender, events EventPublisher, linkBase string, log *slog.Logger) RequestService {
	if log == nil {
		log = slog.Default()
	}
	return &requestService{
		repo:     repo,
		store:    store,
		sender:   sender,
		events:   events,
		linkBase: strings.TrimRight(linkBase, "/"),
		log:      log,
	}
}

func (s *requestService) Create(ctx context.Context, clientName, contactHandle string, docTypes []string) (*model.Request, error) {
	if len(docTypes) == 0 {
		return nil, ErrEmptyDocTypes
	}
	for _, dt := range docTypes {
		if strings.TrimSpace(dt) == "" {
			return nil, ErrEmptyDocTypes
		}
	}

	req := &model.Request{
		ID:                uuid.NewString(),
		ClientName:        clientName,
		ContactHandle:     contactHandle,
		RequestedDocTypes: docTypes,
		AccessToken:       newAccessToken(),
		Status:            model.StatusSent,
		CreatedAt:         time.Now().UTC(),
	}
	req.Documents = make([]model.Document, len(docTypes))
	for i, dt := range docTypes {
		req.Documents[i] = model.Document{
			ID:     uuid.NewString(),
			Type:   dt,
			Status: model.DocPending,
		}
	}

	stored, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.notify(ctx, stored.ContactHandle, fmt.Sprintf(
		"Hello %s, please upload your requested documents (%s) securely using this link: %s",
		stored.ClientName,
		strings.Join(stored.RequestedDocTypes, ", "),
		s.uploadLink(stored.AccessToken),
	))

	s.events.RequestUpdated(stored)
	return stored, nil
}

func (s *requestService) List(ctx context.Context) ([]model.Request, error) {
	return s.repo.List(ctx)
}

func (s *requestService) Get(ctx context.Context, id string) (*model.Request, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

func (s *requestService) Resolve(ctx context.Context, token string) (*model.Request, error) {
	req, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if req.Expired() {
		return nil, ErrLinkExpired
	}

	// First read flips Sent to Viewed. This is a direct override of the
	// marker, not an aggregate derivation, and is idempotent.
	if req.Status == model.StatusSent {
		if err := s.repo.SetStatus(ctx, req.ID, model.StatusViewed); err != nil {
			return nil, fmt.Errorf("mark viewed: %w", err)
		}
		req.Status = model.StatusViewed
		s.events.RequestUpdated(req)
	}

	return req, nil
}

func (s *requestService) Ingest(ctx context.Context, token, docType string, payload io.Reader, size int64, mimeType string) (*model.Request, error) {
	req, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	if payload == nil || size <= 0 {
		return nil, ErrEmptyPayload
	}

	doc := req.DocumentByType(docType)
	if doc == nil {
		return nil, ErrInvalidDocType
	}

	// PDFs are persisted as raw binary so the bytes survive untouched;
	// everything else is stored as an image. The kind only affects storage,
	// never the document model.
	kind := storage.KindImage
	if mimeType == "application/pdf" {
		kind = storage.KindRaw
	}

	key := storage.BuildKey(kind, docType)
	info, err := s.store.Put(ctx, key, payload, storage.PutObjectOptions{
		Size:        size,
		ContentType: mimeType,
		Metadata: map[string]string{
			"request-id": req.ID,
			"doc-type":   docType,
		},
	})
	if err != nil {
		// Storage failures abort before any state mutation.
		return nil, fmt.Errorf("store upload: %w: %v", ErrStorageFailed, err)
	}

	now := time.Now().UTC()
	doc.Status = model.DocSubmitted
	doc.AssetRef = info.Key
	doc.RejectionReason = ""
	doc.SubmittedAt = &now

	updated, err := s.repo.UpdateDocument(ctx, req.ID, doc, model.DeriveStatus(req.Documents, req.Status))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		// The blob is stored but the state mutation failed: the object is
		// orphaned and the client retries the upload.
		return nil, fmt.Errorf("record upload: %w", err)
	}

	s.events.RequestUpdated(updated)
	return updated, nil
}

func (s *requestService) SetDocumentStatus(ctx context.Context, requestID, docID string, status model.DocumentStatus, reason string) (*model.Request, error) {
	req, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	doc := req.Document(docID)
	if doc == nil {
		return nil, ErrNotFound
	}
	if !doc.CanReview(status) {
		return nil, ErrInvalidTransition
	}
	if status == model.DocRejected && strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}

	doc.Status = status
	if status == model.DocRejected {
		doc.RejectionReason = reason
	} else {
		doc.RejectionReason = ""
	}

	updated, err := s.repo.UpdateDocument(ctx, req.ID, doc, model.DeriveStatus(req.Documents, req.Status))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update document status: %w", err)
	}

	if status == model.DocRejected {
		s.notify(ctx, updated.ContactHandle, fmt.Sprintf(
			"Your %s document was rejected. Reason: %s. Please re-upload here: %s",
			doc.Type, reason, s.uploadLink(updated.AccessToken),
		))
	}

	s.events.RequestUpdated(updated)
	return updated, nil
}

func (s *requestService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	s.events.RequestDeleted(id)
	return nil
}

// notify delivers a message best-effort. A delivery failure is logged and
// never surfaced to the mutating caller.
func (s *requestService) notify(ctx context.Context, contactHandle, text string) {
	if s.sender == nil {
		return
	}
	if err := s.sender.Send(ctx, contactHandle, text); err != nil {
		s.log.Warn("message delivery failed", "contact", contactHandle, "error", err)
	}
}

func (s *requestService) uploadLink(token string) string {
	return s.linkBase + "/upload/" + token
}

// newAccessToken returns a 32-char hex secret. Store-level uniqueness is
// enforced by the repository; a collision fails creation.
func newAccessToken() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
