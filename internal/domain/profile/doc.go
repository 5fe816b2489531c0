// Package profile contains the learner profile model.
//
// The package owns the rules that do not need storage to check: name
// length and normalization, the avatar, theme and learning-mode
// vocabularies, session counter updates and the calendar-day streak.
// Rules that span several profiles (the six-profile cap, case-insensitive
// name uniqueness, a single active profile) are stated here as constants
// and Repository contracts and enforced by the command handlers inside a
// store transaction.
//
// # Lifecycle
//
// A profile is created inactive unless it is the first one, becomes active
// through activation, goes back to inactive when another profile is
// activated, and is removed by deletion together with its progress,
// sessions and gradings:
//
//	p, err := profile.NewProfile(profile.NewProfileParams{
//	    ID:   uuid.New().String(),
//	    Name: "Dashboard User",
//	    Rank: rank,
//	}, time.Now())
//
// Like the rest of the domain layer, the package depends only on the
// standard library and sibling domain packages.
package profile
