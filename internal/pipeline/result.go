package pipeline

// Outcome tags the terminal state of one run.
type Outcome string

const (
	OutcomeOK              Outcome = "ok"
	OutcomeFetchFailed     Outcome = "fetch_failed"
	OutcomeMalformedRecord Outcome = "malformed_record"
	OutcomeNotifyFailed    Outcome = "notify_failed"
)

// Result is the caller-facing terminal output of one run: a human-readable
// message plus a numeric status code (200 on success, 500 on any abort).
type Result struct {
	Outcome Outcome
	Message string
	Code    int
}

func okResult() Result {
	return Result{Outcome: OutcomeOK, Message: "Complete.", Code: 200}
}

func abortedResult(outcome Outcome, message string) Result {
	return Result{Outcome: outcome, Message: message, Code: 500}
}
