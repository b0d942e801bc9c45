package decks

import "errors"

var (
	// ErrInvalidName is returned when a deck name is empty or only whitespace.
	ErrInvalidName = errors.New("deck name must not be blank")

	// ErrDuplicate is returned by CreateDeck when the name is already taken.
	ErrDuplicate = errors.New("deck already exists")

	// ErrNotFound is returned when the named deck does not exist.
	ErrNotFound = errors.New("deck not found")

	// ErrUnknownCard is returned when a card id is not in the catalog.
	ErrUnknownCard = errors.New("card not found in catalog")

	// ErrCopyLimit is returned when adding a card would exceed the copy cap.
	ErrCopyLimit = errors.New("card copy limit reached")

	// ErrIndexOutOfRange is returned when a card position does not exist in the deck.
	ErrIndexOutOfRange = errors.New("card index out of range")

	// ErrInvalidResult is returned when a battle result is neither W nor L.
	ErrInvalidResult = errors.New("battle result must be W or L")

	// ErrPersistence wraps any failure to read or write the durable deck record.
	ErrPersistence = errors.New("deck storage failed")
)
