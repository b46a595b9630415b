package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no live session exists for a code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidTransition is returned for an action that is not legal in the current phase.
	ErrInvalidTransition = errors.New("action not valid in current phase")
	// ErrDuplicateAnswer is returned for a second submission on the same question.
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")
	// ErrUnknownParticipant is returned for actions from a client id that never joined.
	ErrUnknownParticipant = errors.New("participant not found in session")
	// ErrSessionStarted is returned when a new participant tries to join mid-game.
	ErrSessionStarted = errors.New("session already started")
	// ErrNotHost is returned when a participant sends a host-only action.
	ErrNotHost = errors.New("action restricted to the host")
	// ErrNameRequired is returned when settings demand a player name and none was given.
	ErrNameRequired = errors.New("player name required")
	// ErrOptionNotFound indicates a submitted option id does not belong to the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrInvalidQuiz is returned at session creation for malformed quiz content,
	// e.g. a question flagging more than one option as correct.
	ErrInvalidQuiz = errors.New("quiz content invalid")
)
