package model

import "time"

// DocumentStatus is the submission state of a single requested document.
type DocumentStatus string

const (
	DocPending   DocumentStatus = "Pending"
	DocSubmitted DocumentStatus = "Submitted"
	DocApproved  DocumentStatus = "Approved"
	DocRejected  DocumentStatus = "Rejected"
)

// Valid reports whether s is one of the known document statuses.
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocPending, DocSubmitted, DocApproved, DocRejected:
		return true
	}
	return false
}

// Document is one requested artifact inside a Request. It has no lifecycle of
// its own: it is created together with its Request and mutated only through
// the request service.
type Document struct {
	ID              string         `json:"id"`
	Type            string         `json:"type"`
	Status          DocumentStatus `json:"status"`
	AssetRef        string         `json:"asset_ref,omitempty"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	SubmittedAt     *time.Time     `json:"submitted_at,omitempty"`
}

// CanReview reports whether an operator may move the document to next.
// Only Submitted -> Approved and Submitted -> Rejected are reviewer
// transitions; the only path out of Pending or Rejected is a re-upload.
func (d *Document) CanReview(next DocumentStatus) bool {
	if d.Status != DocSubmitted {
		return false
	}
	return next == DocApproved || next == DocRejected
}
