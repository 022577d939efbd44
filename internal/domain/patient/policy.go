package patient

// Reason explains why a patient was auto-served at registration. It feeds the
// operator's status message only; nothing branches on it afterwards.
type Reason string

const (
	ReasonEmergency Reason = "emergency"
	ReasonSenior    Reason = "senior"
	ReasonManual    Reason = "manual"
	ReasonNone      Reason = ""
)

// Admission is the outcome of the admission policy for one candidate.
type Admission struct {
	AutoServe bool
	Reason    Reason
}

// Admit decides whether a patient is marked served at registration time.
// Emergency cases, seniors, and manually flagged patients bypass the wait
// queue. The reason reflects the highest-priority matching rule.
func Admit(age int, emergency, manual bool) Admission {
	switch {
	case emergency:
		return Admission{AutoServe: true, Reason: ReasonEmergency}
	case age >= SeniorAge:
		return Admission{AutoServe: true, Reason: ReasonSenior}
	case manual:
		return Admission{AutoServe: true, Reason: ReasonManual}
	default:
		return Admission{AutoServe: false, Reason: ReasonNone}
	}
}
