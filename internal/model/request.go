package model

import "time"

// RequestStatus is the aggregate state of a collection request.
//
// Sent and Viewed are governed by the access token gate (has the client ever
// opened the link); the remaining values are derived from the documents.
type RequestStatus string

const (
	StatusSent      RequestStatus = "Sent"
	StatusViewed    RequestStatus = "Viewed"
	StatusPartial   RequestStatus = "Partial"
	StatusSubmitted RequestStatus = "Submitted"
	StatusApproved  RequestStatus = "Approved"
	StatusRejected  RequestStatus = "Rejected"
)

// Request is one document-collection engagement with a client. Core fields
// (name, contact, requested types, token) are immutable after creation; only
// statuses and per-document submission fields change in place.
type Request struct {
	ID                string        `json:"id"`
	ClientName        string        `json:"client_name"`
	ContactHandle     string        `json:"contact_handle"`
	RequestedDocTypes []string      `json:"requested_doc_types"`
	Documents         []Document    `json:"documents"`
	AccessToken       string        `json:"access_token"`
	Status            RequestStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
}

// Document returns the document with the given id, or nil.
func (r *Request) Document(id string) *Document {
	for i := range r.Documents {
		if r.Documents[i].ID == id {
			return &r.Documents[i]
		}
	}
	return nil
}

// DocumentByType returns the document matching the requested type, or nil.
func (r *Request) DocumentByType(docType string) *Document {
	for i := range r.Documents {
		if r.Documents[i].Type == docType {
			return &r.Documents[i]
		}
	}
	return nil
}

// Expired reports whether the upload link is terminal for the client:
// the whole submission is in and under review.
func (r *Request) Expired() bool {
	return r.Status == StatusSubmitted || r.Status == StatusApproved
}

// DeriveStatus computes the aggregate request status from the document set.
// current carries the Sent/Viewed marker, which is kept when nothing has
// been submitted yet.
//
// Priority order:
//  1. any rejected document re-opens the request as Partial, regardless of
//     how far the rest have progressed;
//  2. every document submitted or approved means the submission is complete;
//  3. any progress at all is Partial;
//  4. otherwise the Sent/Viewed marker stands.
func DeriveStatus(docs []Document, current RequestStatus) RequestStatus {
	anyRejected := false
	allDone := len(docs) > 0
	anyDone := false
	for i := range docs {
		switch docs[i].Status {
		case DocRejected:
			anyRejected = true
			allDone = false
		case DocSubmitted, DocApproved:
			anyDone = true
		default:
			allDone = false
		}
	}
	switch {
	case anyRejected:
		return StatusPartial
	case allDone:
		return StatusSubmitted
	case anyDone:
		return StatusPartial
	default:
		return current
	}
}
