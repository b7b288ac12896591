package registry

import (
	"context"

	"noticeflow/internal/eligibility"
	"noticeflow/internal/notice"
)

// Key identifies one enrichment lookup. The notice number is part of the key
// because the same identity may be liable on several notices with different
// furnished particulars.
type Key struct {
	IDNo     string
	IDType   notice.IDType
	NoticeNo notice.NoticeNo
}

// ContactRecord is identity-matched contact data supplied by the external
// registry collaborator.
type ContactRecord struct {
	Name              string
	RegisteredAddress eligibility.Address
	MailingAddress    eligibility.Address
}

// Provider is the registry-enrichment collaborator port. Lookup returns
// (nil, nil) when the registry has no record for the key; for a mandatory
// identity type the eligibility gate turns that into an auto-suspension.
type Provider interface {
	Lookup(ctx context.Context, key Key) (*ContactRecord, error)
}
