package roster

import "time"

// Outcome is the result of an admission attempt.
type Outcome string

const (
	Admitted       Outcome = "admitted"
	AlreadyEntered Outcome = "already_entered"
)

// Admit moves rec from NotEntered to Entered. Entered is terminal until a
// bulk clear, so a second call reports AlreadyEntered and leaves EnteredAt
// untouched.
func Admit(rec *Record, now time.Time) Outcome {
	if rec.Status == Entered {
		return AlreadyEntered
	}
	rec.Status = Entered
	at := now
	rec.EnteredAt = &at
	return Admitted
}
