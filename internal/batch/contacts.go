package batch

import (
	"context"

	"noticeflow/internal/eligibility"
	"noticeflow/internal/notice"
	"noticeflow/internal/registry"
)

// ContactSource assembles the eligibility candidate for a notice: recipient
// name plus every address channel the system knows about.
type ContactSource interface {
	Candidate(ctx context.Context, n *notice.Notice) (eligibility.Candidate, error)
}

// FurnishedLookup resolves the owner-furnished driver particulars for a
// notice, when any were furnished.
type FurnishedLookup func(ctx context.Context, no notice.NoticeNo) (name string, addr eligibility.Address, ok bool, err error)

// RegistryContactSource builds candidates from the registry-enrichment
// provider, with an optional furnished-particulars lookup for the demand
// track. A failed or absent enrichment is recorded on the candidate, not
// returned as an error; the eligibility gate decides what it means.
type RegistryContactSource struct {
	provider  registry.Provider
	furnished FurnishedLookup
}

func NewRegistryContactSource(provider registry.Provider, furnished FurnishedLookup) *RegistryContactSource {
	return &RegistryContactSource{provider: provider, furnished: furnished}
}

func (s *RegistryContactSource) Candidate(ctx context.Context, n *notice.Notice) (eligibility.Candidate, error) {
	c := eligibility.Candidate{
		Notice:    n,
		Addresses: make(map[eligibility.Channel]eligibility.Address),
	}

	record, err := s.provider.Lookup(ctx, registry.Key{
		IDNo:     n.IDNo,
		IDType:   n.IDType,
		NoticeNo: n.NoticeNo,
	})
	if err != nil {
		// A registry outage leaves the candidate un-enriched; the gate routes
		// mandatory identity types to a hold instead of failing the batch.
		return c, nil
	}
	if record != nil {
		c.Enriched = true
		c.Name = record.Name
		if !record.RegisteredAddress.Blank() {
			c.Addresses[eligibility.ChannelRegistered] = record.RegisteredAddress
		}
		if !record.MailingAddress.Blank() {
			c.Addresses[eligibility.ChannelMailing] = record.MailingAddress
		}
	}

	if s.furnished != nil {
		name, addr, ok, err := s.furnished(ctx, n.NoticeNo)
		if err != nil {
			return c, err
		}
		if ok && !addr.Blank() {
			c.Addresses[eligibility.ChannelFurnished] = addr
			if c.Name == "" {
				c.Name = name
			}
		}
	}

	return c, nil
}
