package eligibility

import (
	"strings"

	"noticeflow/internal/notice"
)

// Channel identifies one address source for a notice recipient.
type Channel string

const (
	ChannelFurnished  Channel = "FURNISHED"  // particulars furnished by the owner
	ChannelRegistered Channel = "REGISTERED" // registry-enriched registered address
	ChannelMailing    Channel = "MAILING"    // self-declared mailing address
)

// Address is a recipient address snapshot. An address record whose sub-fields
// are all blank is treated identically to no address at all.
type Address struct {
	Line1        string
	Line2        string
	BuildingName string
	PostalCode   string
}

func (a Address) Blank() bool {
	return strings.TrimSpace(a.Line1) == "" &&
		strings.TrimSpace(a.Line2) == "" &&
		strings.TrimSpace(a.BuildingName) == "" &&
		strings.TrimSpace(a.PostalCode) == ""
}

// Format renders the address for the tracking-record snapshot.
func (a Address) Format() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Line1, a.Line2, a.BuildingName, a.PostalCode} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// Candidate is a notice plus the contact data pre-fetched for it.
type Candidate struct {
	Notice    *notice.Notice
	Name      string
	Addresses map[Channel]Address

	// Enriched records whether registry enrichment completed. Mandatory for
	// NRIC/FIN identities; its absence is a precondition failure, not an
	// error.
	Enriched bool

	// Exempt excludes the candidate from the batch without triggering the
	// automatic suspension side effect.
	Exempt bool
}

// Selection is the tagged result of address resolution: either a channel was
// selected or nothing deliverable exists. Audits reconstruct "why no letter
// was sent" from the channel, so the fallback order is part of the contract.
type Selection struct {
	Found   bool
	Channel Channel
	Address Address
}

// Cause says why a candidate was routed into auto-suspension.
type Cause string

const (
	CauseNoAddress         Cause = "no_address"
	CauseNoFurnished       Cause = "no_furnished_address"
	CauseChainExhausted    Cause = "fallback_chain_exhausted"
	CauseEnrichmentMissing Cause = "enrichment_missing"
)

// AutoSuspendReason is the fixed catalog reason for eligibility holds.
const AutoSuspendReason = "OLD"

// AutoSuspension is a side effect emitted instead of an error: the expected
// business behavior for an undeliverable notice is "hold, don't fail".
type AutoSuspension struct {
	NoticeNo notice.NoticeNo
	Cause    Cause
}

// Eligible pairs a candidate with its resolved address.
type Eligible struct {
	Candidate Candidate
	Selection Selection
}
