package models

// QueryCandidate is one generated statement in the store's query dialect.
// Candidates execute independently; their results are unioned.
type QueryCandidate struct {
	Index     int    `json:"index"` // 1 or 2
	Statement string `json:"statement"`
}

// CandidateState tracks a candidate through execution and its single bounded
// repair. The state machine makes the at-most-one-repair invariant
// structural: Repairing is only reachable from Failed, and a second failure
// lands in FinalFailed with no edge back.
type CandidateState string

const (
	CandidatePending     CandidateState = "pending"
	CandidateExecuting   CandidateState = "executing"
	CandidateSucceeded   CandidateState = "succeeded"
	CandidateFailed      CandidateState = "failed"
	CandidateRepairing   CandidateState = "repairing"
	CandidateFinalFailed CandidateState = "final_failed"
)

// ExecutionOutcome records how a candidate ended. Error is empty on success;
// on final failure Rows is empty and Error carries the last store message so
// the caller can distinguish "no data matched" from "statement was malformed".
type ExecutionOutcome struct {
	Candidate         QueryCandidate `json:"candidate"`
	ExecutedStatement string         `json:"executed_statement"`
	Repaired          bool           `json:"repaired"`
	Rows              []Row          `json:"rows"`
	Error             string         `json:"error,omitempty"`
}

// Succeeded reports whether the candidate produced a usable result set.
func (o ExecutionOutcome) Succeeded() bool {
	return o.Error == ""
}

// ResultSet is the ordered rows one candidate contributed to the turn.
type ResultSet struct {
	CandidateIndex int    `json:"candidate_index"`
	Statement      string `json:"statement"`
	Rows           []Row  `json:"rows"`
}
