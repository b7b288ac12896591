package refdata

import (
	"context"

	"github.com/shopspring/decimal"

	"noticeflow/internal/notice"
)

// ParameterID names a family of tunable values in the parameter table.
type ParameterID string

const (
	ParamStageDays  ParameterID = "STAGEDAYS" // days until the next stage falls due
	ParamAdminFee   ParameterID = "ADM"       // administration fee at fee-bearing stages
	ParamPostage    ParameterID = "POS"       // days from processing to letter date
	ParamPaymentDue ParameterID = "PDD"       // days from letter date to payment due

	ParamTSSuspensionDuration ParameterID = "TS_SUSPENSION_DURATION"
	ParamPSSuspensionDuration ParameterID = "PS_SUSPENSION_DURATION"
)

// Source is where a suspension request originates. The reason catalog gates
// which sources may use each reason code.
type Source string

const (
	SourceInternal Source = "EPR" // internal/administrative channel
	SourcePartner  Source = "CRS" // external/partner verification channel
)

// ReasonEntry describes one (type, reason) row of the suspension reason catalog.
type ReasonEntry struct {
	Type               notice.SuspensionType
	Code               string
	Description        string
	DefaultRevivalDays int
	AllowedSources     []Source

	// AutoReapply marks looping temporary reasons: reviving them does not stop
	// the same reason being applied again when the condition recurs.
	AutoReapply bool
}

// AllowedFrom reports whether src may use this reason.
func (e ReasonEntry) AllowedFrom(src Source) bool {
	for _, s := range e.AllowedSources {
		if s == src {
			return true
		}
	}
	return false
}

type paramKey struct {
	id   ParameterID
	code string
}

type reasonKey struct {
	typ  notice.SuspensionType
	code string
}

// Snapshot is an immutable view of the three reference tables, taken once and
// injected into the engine at call time. The engine never reads live config.
type Snapshot struct {
	params   map[paramKey]decimal.Decimal
	stageMap map[notice.Stage]notice.Stage
	reasons  map[reasonKey]ReasonEntry
}

// Days returns an integer day-count parameter.
func (s *Snapshot) Days(id ParameterID, code string) (int, bool) {
	v, ok := s.params[paramKey{id: id, code: code}]
	if !ok {
		return 0, false
	}
	return int(v.IntPart()), true
}

// Amount returns a money-valued parameter.
func (s *Snapshot) Amount(id ParameterID, code string) (decimal.Decimal, bool) {
	v, ok := s.params[paramKey{id: id, code: code}]
	return v, ok
}

// NextStage returns the stage-map successor of stage.
func (s *Snapshot) NextStage(stage notice.Stage) (notice.Stage, bool) {
	next, ok := s.stageMap[stage]
	return next, ok
}

// Reason resolves a catalog entry by suspension type and reason code.
func (s *Snapshot) Reason(typ notice.SuspensionType, code string) (ReasonEntry, bool) {
	e, ok := s.reasons[reasonKey{typ: typ, code: code}]
	return e, ok
}

// Builder assembles a Snapshot. Loaders and test fixtures use it; once Build
// is called the snapshot is handed out read-only.
type Builder struct {
	snap *Snapshot
}

func NewBuilder() *Builder {
	return &Builder{snap: &Snapshot{
		params:   make(map[paramKey]decimal.Decimal),
		stageMap: make(map[notice.Stage]notice.Stage),
		reasons:  make(map[reasonKey]ReasonEntry),
	}}
}

func (b *Builder) Parameter(id ParameterID, code string, value decimal.Decimal) *Builder {
	b.snap.params[paramKey{id: id, code: code}] = value
	return b
}

func (b *Builder) ParameterDays(id ParameterID, code string, days int) *Builder {
	return b.Parameter(id, code, decimal.NewFromInt(int64(days)))
}

func (b *Builder) MapStage(from, to notice.Stage) *Builder {
	b.snap.stageMap[from] = to
	return b
}

func (b *Builder) AddReason(e ReasonEntry) *Builder {
	b.snap.reasons[reasonKey{typ: e.Type, code: e.Code}] = e
	return b
}

func (b *Builder) Build() *Snapshot {
	return b.snap
}

// SnapshotSource supplies the current configuration snapshot. The postgres
// loader implements it; Static wraps a fixed snapshot for tests.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

type staticSource struct {
	snap *Snapshot
}

func Static(snap *Snapshot) SnapshotSource {
	return staticSource{snap: snap}
}

func (s staticSource) Snapshot(context.Context) (*Snapshot, error) {
	return s.snap, nil
}
