package repository

import (
	"context"
	"errors"

	"github.com/princedesai012/Doc-Flow/internal/model"
)

// Package repository contains data access abstractions. Implementations live
// in subpackages (e.g. postgres) and hold no business logic.

// ErrDuplicateToken is returned by Create when the generated access token is
// already in use by another request. Token uniqueness is enforced by the
// store, so a collision surfaces as a creation-time error.
var ErrDuplicateToken = errors.New("access token already in use")

// RequestRepository defines persistence for requests and their documents.
// Not-found conditions are reported as sql.ErrNoRows; callers translate.
type RequestRepository interface {
	// Create inserts a request together with all of its documents.
	Create(ctx context.Context, req *model.Request) (*model.Request, error)

	// FindByID returns a request with its documents in creation order.
	FindByID(ctx context.Context, id string) (*model.Request, error)

	// FindByToken returns the request owning the given access token.
	FindByToken(ctx context.Context, token string) (*model.Request, error)

	// List returns all requests, newest first, documents included.
	List(ctx context.Context) ([]model.Request, error)

	// SetStatus updates only the aggregate status (the Sent/Viewed marker).
	SetStatus(ctx context.Context, id string, status model.RequestStatus) error

	// UpdateDocument atomically writes the document's mutable fields and the
	// request's aggregate status in one transaction, then returns the
	// updated request.
	UpdateDocument(ctx context.Context, requestID string, doc *model.Document, status model.RequestStatus) (*model.Request, error)

	// Delete removes a request and its documents. Returns sql.ErrNoRows if
	// the request does not exist.
	Delete(ctx context.Context, id string) error
}
