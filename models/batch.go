package models

// TargetDescriptor identifies one unit of batch work: a page to crawl and
// the extraction variant to apply to it.
type TargetDescriptor struct {
	URL   string
	Query string // originating search query, carried through to records
	Kind  RecordKind
}

// Outcome is the terminal state of a BatchItem. Items transition exactly
// once, from Pending to Success or Failed.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

// BatchItem pairs a target with its per-item result. Failed items carry
// the error code and message so a caller can retry selectively.
type BatchItem struct {
	Target  TargetDescriptor
	Outcome Outcome
	Records []Record
	ErrCode string
	ErrMsg  string
}

// Fail marks the item failed with context from err. CrawlError codes are
// preserved; anything else is reported as an internal error.
func (b *BatchItem) Fail(err error) {
	b.Outcome = OutcomeFailed
	if ce, ok := err.(*CrawlError); ok {
		b.ErrCode = ce.Code
		b.ErrMsg = ce.Message
		return
	}
	b.ErrCode = ErrCodeInternal
	b.ErrMsg = err.Error()
}

// Succeed marks the item done with its extracted records.
func (b *BatchItem) Succeed(records []Record) {
	b.Outcome = OutcomeSuccess
	b.Records = records
}
