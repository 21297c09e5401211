package definite

import "fmt"

// Status is what is known about the assignment of a variable at a program
// point. It is the pair (definitely assigned, definitely unassigned), one
// bit each.
type Status uint8

const (
	Neither    Status = 0
	Assigned   Status = 1
	Unassigned Status = 2
	Both       Status = Assigned | Unassigned // Only on paths that never execute.
)

// StatusOf returns the status of the pair (da, du).
func StatusOf(da, du bool) Status {
	var s Status
	if da {
		s |= Assigned
	}
	if du {
		s |= Unassigned
	}
	return s
}

func (s Status) valid() Status {
	if s > Both {
		panic(fmt.Sprintf("definite: invalid assignment status %d", uint8(s)))
	}
	return s
}

// DA returns true if the variable is definitely assigned.
func (s Status) DA() bool { return s.valid()&Assigned != 0 }

// DU returns true if the variable is definitely unassigned.
func (s Status) DU() bool { return s.valid()&Unassigned != 0 }

// Join returns the status at the confluence of paths with statuses s and t.
// A variable is definitely (un)assigned after the join if it is on both
// paths.
func (s Status) Join(t Status) Status { return s.valid() & t.valid() }

func (s Status) String() string {
	switch s {
	case Neither:
		return "NEITHER"
	case Assigned:
		return "ASSIGNED"
	case Unassigned:
		return "UNASSIGNED"
	case Both:
		return "BOTH"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}
