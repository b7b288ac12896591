package notice

import (
	"time"

	"github.com/shopspring/decimal"
)

// NoticeNo uniquely identifies an offence notice. Immutable once assigned.
type NoticeNo string

func (n NoticeNo) String() string { return string(n) }

// Stage is a coded checkpoint in a notice's reminder escalation.
//
// Usage: construct via ParseStage at trust boundaries; the stage map in refdata
// defines the successor relation, not this package.
type Stage string

const (
	StageENA Stage = "ENA" // enforcement notice issued
	StageRD1 Stage = "RD1" // first reminder to owner
	StageRD2 Stage = "RD2" // second reminder to owner
	StageRR3 Stage = "RR3" // final reminder, administration fee applies
	StageDN1 Stage = "DN1" // first demand to furnished driver
	StageDN2 Stage = "DN2" // second demand to furnished driver
	StageDR3 Stage = "DR3" // final demand, administration fee applies
	StageANL Stage = "ANL" // advisory notice letter; holds instead of advancing
	StageCPC Stage = "CPC" // closed pending court; terminal marker
)

var validStages = map[Stage]bool{
	StageENA: true,
	StageRD1: true,
	StageRD2: true,
	StageRR3: true,
	StageDN1: true,
	StageDN2: true,
	StageDR3: true,
	StageANL: true,
	StageCPC: true,
}

func (s Stage) IsValid() bool {
	return validStages[s]
}

func (s Stage) String() string { return string(s) }

// FeeBearing reports whether the administration fee applies at this stage.
func (s Stage) FeeBearing() bool {
	return s == StageRR3 || s == StageDR3
}

// StageGroup selects which tracking-record variant a stage writes.
type StageGroup string

const (
	GroupReminder StageGroup = "reminder" // owner-facing reminder letters
	GroupDemand   StageGroup = "demand"   // furnished-driver demand letters
)

// Group maps a stage to its tracking group. ANL and CPC fall into the reminder
// group; they only ever produce audit rows, never demand letters.
func (s Stage) Group() StageGroup {
	switch s {
	case StageDN1, StageDN2, StageDR3:
		return GroupDemand
	default:
		return GroupReminder
	}
}

// SuspensionType is the severity of a hold that freezes stage advancement.
type SuspensionType string

const (
	SuspensionTemporary SuspensionType = "TS"
	SuspensionPermanent SuspensionType = "PS"
)

func (t SuspensionType) IsValid() bool {
	return t == SuspensionTemporary || t == SuspensionPermanent
}

// IDType classifies the notice's liable identity. NRIC/FIN identities require
// registry enrichment before a letter stage may proceed; UEN identities walk
// the corporate address fallback chain instead.
type IDType string

const (
	IDTypeNRIC IDType = "NRIC"
	IDTypeFIN  IDType = "FIN"
	IDTypeUEN  IDType = "UEN"
)

// Mandatory reports whether registry enrichment must have completed for this
// identity type before letters can be produced.
func (t IDType) Mandatory() bool {
	return t == IDTypeNRIC || t == IDTypeFIN
}

// Sync flag values for the internet replica. "N" means the replica is behind
// and the dirty sweeper must retry.
const (
	SyncClean = "Y"
	SyncDirty = "N"
)

// Notice is the aggregate root. Mutated only by the stage transition engine and
// the suspension subsystem; never physically deleted (CPC marks closure).
type Notice struct {
	NoticeNo  NoticeNo
	IDNo      string
	IDType    IDType
	VehicleNo string

	PrevProcessingStage Stage
	LastProcessingStage Stage
	NextProcessingStage Stage
	PrevProcessingDate  time.Time
	LastProcessingDate  time.Time
	NextProcessingDate  time.Time

	CompositionAmount decimal.Decimal
	AdministrationFee decimal.NullDecimal
	AmountPayable     decimal.Decimal

	SuspensionType        SuspensionType // empty when active
	EPRReasonOfSuspension string
	EPRDateOfSuspension   *time.Time
	CRSReasonOfSuspension string
	CRSDateOfSuspension   *time.Time
	DueDateOfRevival      *time.Time

	MessageCode     string
	PaymentAccepted bool

	IsSync string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Suspended reports whether a hold currently freezes stage advancement. A
// suspension is only valid when at least one side carries both a reason and a
// date; a bare type with two empty sides is treated as not suspended.
func (n *Notice) Suspended() bool {
	if n.SuspensionType == "" {
		return false
	}
	return n.sidePopulated()
}

func (n *Notice) sidePopulated() bool {
	epr := n.EPRReasonOfSuspension != "" && n.EPRDateOfSuspension != nil
	crs := n.CRSReasonOfSuspension != "" && n.CRSDateOfSuspension != nil
	return epr || crs
}

// ClearSuspension resets the overlay fields after a revival. Stage pointers are
// deliberately untouched.
func (n *Notice) ClearSuspension() {
	n.SuspensionType = ""
	n.EPRReasonOfSuspension = ""
	n.EPRDateOfSuspension = nil
	n.CRSReasonOfSuspension = ""
	n.CRSDateOfSuspension = nil
	n.DueDateOfRevival = nil
}

// Midnight truncates t to date-only granularity in its location. Processing
// dates are stored at midnight so same-day re-runs compare equal.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
