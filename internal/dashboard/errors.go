package dashboard

// inputError rejects a mutation locally, before anything is applied or sent.
type inputError string

func (e inputError) Error() string       { return string(e) }
func (e inputError) UserMessage() string { return string(e) }

const (
	errDueBeforeStart = inputError("Due date must be after start date")
	errStillSaving    = inputError("This item is still being saved, try again in a moment")
)

// reject reports a locally refused mutation the way a remote failure is
// reported.
func (s *Session) reject(err inputError) error {
	s.notify.Failure(err.UserMessage())
	return err
}
