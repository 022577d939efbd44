package patient

import "testing"

func TestAdmit_Emergency(t *testing.T) {
	a := Admit(10, true, false)
	if !a.AutoServe {
		t.Error("expected auto-serve for emergency")
	}
	if a.Reason != ReasonEmergency {
		t.Errorf("expected reason emergency, got %q", a.Reason)
	}
}

func TestAdmit_Senior(t *testing.T) {
	a := Admit(70, false, false)
	if !a.AutoServe {
		t.Error("expected auto-serve for senior")
	}
	if a.Reason != ReasonSenior {
		t.Errorf("expected reason senior, got %q", a.Reason)
	}
}

func TestAdmit_SeniorBoundary(t *testing.T) {
	if a := Admit(65, false, false); !a.AutoServe || a.Reason != ReasonSenior {
		t.Errorf("age 65 must qualify as senior, got %+v", a)
	}
	if a := Admit(64, false, false); a.AutoServe {
		t.Errorf("age 64 must not auto-serve, got %+v", a)
	}
}

func TestAdmit_Manual(t *testing.T) {
	a := Admit(30, false, true)
	if !a.AutoServe {
		t.Error("expected auto-serve for manual flag")
	}
	if a.Reason != ReasonManual {
		t.Errorf("expected reason manual, got %q", a.Reason)
	}
}

func TestAdmit_None(t *testing.T) {
	a := Admit(30, false, false)
	if a.AutoServe {
		t.Error("expected no auto-serve")
	}
	if a.Reason != ReasonNone {
		t.Errorf("expected empty reason, got %q", a.Reason)
	}
}

func TestAdmit_ReasonPriority(t *testing.T) {
	// Emergency outranks senior and manual when several rules match.
	if a := Admit(70, true, true); a.Reason != ReasonEmergency {
		t.Errorf("expected emergency to win, got %q", a.Reason)
	}
	// Senior outranks manual.
	if a := Admit(70, false, true); a.Reason != ReasonSenior {
		t.Errorf("expected senior to win over manual, got %q", a.Reason)
	}
}
