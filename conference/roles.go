package conference

import "strings"

// Role is a coarse classification of a speaker's governing-body membership
// at the time of a given talk. The empty Role means the calling text did not
// identify membership in either body (or there was no calling text at all).
type Role string

const (
	RoleNone            Role = ""
	RoleFirstPresidency Role = "first-presidency"
	RoleQuorumTwelve    Role = "quorum-of-the-twelve"
)

// ClassifyCalling maps a free-text calling (e.g. "First Counselor in the
// First Presidency") to a Role. Matching is case-insensitive substring
// matching, evaluated in order.
//
// "First Counselor" alone is ambiguous -- it appears in many auxiliary
// organization presidencies -- so it only signals First Presidency
// membership when the text also names that body.
//
// "President of the Quorum of the Twelve" classifies as quorum-of-the-twelve
// even during a First Presidency vacancy, when that officer presides as the
// senior Apostle without being in the First Presidency. That is the correct
// classification for the talk's point in time.
func ClassifyCalling(calling string) Role {
	if calling == "" {
		return RoleNone
	}

	c := strings.ToLower(calling)

	switch {
	case strings.Contains(c, "president of the church"),
		strings.Contains(c, "the first presidency"),
		(strings.Contains(c, "first counselor") || strings.Contains(c, "second counselor")) &&
			strings.Contains(c, "first presidency"):
		return RoleFirstPresidency
	}

	switch {
	case strings.Contains(c, "quorum of the twelve"),
		strings.Contains(c, "twelve apostles"),
		strings.Contains(c, "acting president of the quorum"),
		strings.Contains(c, "president of the quorum"):
		return RoleQuorumTwelve
	}

	return RoleNone
}
