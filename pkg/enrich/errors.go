package enrich

import "fmt"

// RemoteError reports that the remote catalog produced no usable records:
// an explicit no-match answer, a failed request, a malformed body, or a
// rejected call while the circuit is open. Message is safe to show to
// clients.
type RemoteError struct {
	Message string
	Status  int // HTTP status of the remote response, 0 if none
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote lookup: %s: %v", e.Message, e.Err)
	}
	return "remote lookup: " + e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
