package service

import "errors"

var (
	// ErrResourceNotFound indicates a utility directory, question case file or
	// stored submission required to build an archive is missing.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrTeamNotFound indicates the team was not located.
	ErrTeamNotFound = errors.New("team not found")
	// ErrTeamMemberNotFound indicates the member does not belong to the team.
	ErrTeamMemberNotFound = errors.New("team member not found")
	// ErrInvalidCredentials is returned for any failed login.
	ErrInvalidCredentials = errors.New("Incorrect credentials. Please try again")
	// ErrOutsideSchedule indicates the team acted outside its testing window.
	ErrOutsideSchedule = errors.New("outside of the team's testing window")
	// ErrInvalidSubmission indicates an upload that cannot be stored.
	ErrInvalidSubmission = errors.New("invalid submission")
)
