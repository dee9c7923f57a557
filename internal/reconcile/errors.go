package reconcile

import "errors"

// Sentinel errors returned by the reconciliation core. Recoverable
// conditions are never returned from Merge as hard errors — they are
// recorded as [Warning] values attached to the result instead. Of these
// sentinels only ErrWordNotFound is currently returned by this module; the
// others are declared for callers and collaborators but no code path here
// returns them.
var (
	// ErrInvalidRange describes an end <= start range. [Store.FindOverlap]
	// reports such a range with ok == false rather than this error.
	ErrInvalidRange = errors.New("reconcile: end must be greater than start")

	// ErrUnknownAction describes an internal invariant violation: the
	// overlap decider produced a Decision value the reconciler does not
	// recognise. [Reconciler.Apply] logs that case and treats it as Keep
	// without returning this error.
	ErrUnknownAction = errors.New("reconcile: unknown decision action")

	// ErrWordNotFound is returned by UpdateWordLock when no word with the
	// given id exists in the transcript.
	ErrWordNotFound = errors.New("reconcile: word not found")

	// ErrDecoderNotReady describes a decoder that is missing or not ready
	// to accept work. The decode window controller does not return it.
	ErrDecoderNotReady = errors.New("reconcile: decoder not ready")
)

// WarningKind classifies a non-fatal issue encountered while merging a
// payload.
type WarningKind string

// Recognised warning kinds.
const (
	WarningInvalidWord    WarningKind = "invalid_word"
	WarningEmptyPayload   WarningKind = "empty_payload"
	WarningUnknownAction  WarningKind = "unknown_action"
	WarningDecodeFailure  WarningKind = "decode_failure"
	WarningDuplicatePayload WarningKind = "duplicate_payload"
)

// Warning describes a single non-fatal issue surfaced during a merge. The
// caller's last-good state remains current regardless of any Warning.
type Warning struct {
	Kind    WarningKind
	Message string
}
