package service

import (
	"errors"

	"github.com/iliyamo/film-festival/internal/repository"
)

// Kind classifies a service error. Every kind has one fixed message and
// one HTTP status chosen by the handler layer.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindForbidden
	KindUnauthorized
	KindMissingField
	KindInvalidField
	KindDuplicateProposal
	KindAlreadyProposed
	KindAlreadyVoted
	KindNotVoted
	KindAlreadyRated
	KindAlreadyWatched
	KindProposalsClosed
	KindAccountExists
	KindConflictRace
	KindStorageFailure
)

var kindInfo = map[Kind]struct{ name, message string }{
	KindNotFound:          {"NotFound", "resource not found"},
	KindForbidden:         {"Forbidden", "you do not have permission to perform this action"},
	KindUnauthorized:      {"Unauthorized", "invalid credentials"},
	KindMissingField:      {"MissingField", "a required field is missing"},
	KindInvalidField:      {"InvalidField", "a field has an invalid value"},
	KindDuplicateProposal: {"DuplicateProposal", "this movie has already been proposed"},
	KindAlreadyProposed:   {"AlreadyProposed", "this film has already been proposed to this event"},
	KindAlreadyVoted:      {"AlreadyVoted", "you have already upvoted this"},
	KindNotVoted:          {"NotVoted", "you have not upvoted this"},
	KindAlreadyRated:      {"AlreadyRated", "you have already rated this film"},
	KindAlreadyWatched:    {"AlreadyWatched", "film already marked as watched"},
	KindProposalsClosed:   {"ProposalsClosed", "this event does not accept proposals"},
	KindAccountExists:     {"AccountExists", "username or email already registered"},
	KindConflictRace:      {"ConflictRace", "the request conflicted with a concurrent change"},
	KindStorageFailure:    {"StorageFailure", "internal storage failure"},
}

// String returns the kind's stable name, e.g. "AlreadyVoted".
func (k Kind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	return "Unknown"
}

// Message returns the fixed user facing message of the kind.
func (k Kind) Message() string {
	if info, ok := kindInfo[k]; ok {
		return info.message
	}
	return "unknown error"
}

// Error is the only error type returned by the service layer. Detail
// narrows the message (which field, which rule) and Cause keeps the
// underlying storage error for logging.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Kind.Message() + ": " + e.Detail
	}
	return e.Kind.Message()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, ErrAlreadyVoted)
// holds whatever the detail.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrMissingField      = &Error{Kind: KindMissingField}
	ErrInvalidField      = &Error{Kind: KindInvalidField}
	ErrDuplicateProposal = &Error{Kind: KindDuplicateProposal}
	ErrAlreadyProposed   = &Error{Kind: KindAlreadyProposed}
	ErrAlreadyVoted      = &Error{Kind: KindAlreadyVoted}
	ErrNotVoted          = &Error{Kind: KindNotVoted}
	ErrAlreadyRated      = &Error{Kind: KindAlreadyRated}
	ErrAlreadyWatched    = &Error{Kind: KindAlreadyWatched}
	ErrProposalsClosed   = &Error{Kind: KindProposalsClosed}
	ErrAccountExists     = &Error{Kind: KindAccountExists}
	ErrConflictRace      = &Error{Kind: KindConflictRace}
	ErrStorageFailure    = &Error{Kind: KindStorageFailure}
)

func newError(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// KindOf returns the kind carried by err, or KindStorageFailure for
// errors that did not come from this package.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindStorageFailure
}

// onDuplicate maps a unique-key violation to kind and leaves other
// errors alone. It is used right after the insert whose natural key
// the kind describes.
func onDuplicate(err error, kind Kind, detail string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return &Error{Kind: kind, Detail: detail, Cause: err}
	}
	return err
}

// fromStore converts whatever escaped a transaction into an *Error.
// Errors already classified pass through; a stray unique violation or
// an aborted transaction is a ConflictRace; anything else is a
// StorageFailure.
func fromStore(err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Kind: KindNotFound, Cause: err}
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, repository.ErrConflict):
		return &Error{Kind: KindConflictRace, Cause: err}
	default:
		return &Error{Kind: KindStorageFailure, Cause: err}
	}
}
