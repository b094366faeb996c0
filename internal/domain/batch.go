package domain

// Batch is an atomic multi-operation submission envelope. RetryCount is
// bumped by the owning DistributorQueue each time the whole batch is
// resubmitted after a failed BatchSender pass; it is bounded by
// MAX_ITEM_RETRIES independently of any per-operation retry budget BatchSender
// tracks internally.
type Batch struct {
	Ops        []*Operation
	Memo       string
	Issuers    []Issuer
	Tag        string
	RetryCount int
}
