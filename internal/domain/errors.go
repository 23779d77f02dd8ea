package domain

import "errors"

var (
	// ErrNoActiveRound is returned when a join or answer is attempted with
	// nothing to act on.
	ErrNoActiveRound = errors.New("no active round")
	// ErrRoundNotFound indicates the round document does not exist.
	ErrRoundNotFound = errors.New("round not found")
	// ErrActiveRoundExists is returned when creating a round while another
	// one is still waiting or playing.
	ErrActiveRoundExists = errors.New("an active round already exists")
	// ErrRoundFinished indicates an operation that requires a live round hit
	// a finished one.
	ErrRoundFinished = errors.New("round already finished")
	// ErrInsufficientQuestions is the creation precondition failure: fewer
	// matching questions exist than the requested question count.
	ErrInsufficientQuestions = errors.New("not enough questions for the selected categories")
	// ErrPlayerNotFound is returned when a player acts before joining.
	ErrPlayerNotFound = errors.New("player not found in round")
	// ErrInvalidName rejects empty or oversized player names.
	ErrInvalidName = errors.New("invalid player name")
	// ErrInvalidWalletAddress rejects wallet strings outside the base58 shape.
	ErrInvalidWalletAddress = errors.New("invalid wallet address")
	// ErrInvalidSettings rejects out-of-bounds round settings.
	ErrInvalidSettings = errors.New("invalid round settings")
	// ErrIndexConflict is returned by the conditional question advance when
	// the stored index already moved past the expected one.
	ErrIndexConflict = errors.New("question index changed concurrently")
)
