package portfolio

import (
	apperrors "github.com/manumarlats408/stocks/internal/errors"
)

// Phase is the controller's coarse lifecycle phase.
type Phase int

const (
	// PhaseUnconfigured means a required external service is missing
	// credentials; the presentation layer routes to setup guidance.
	PhaseUnconfigured Phase = iota
	// PhaseLoading means an operation is in flight.
	PhaseLoading
	// PhaseReady means state is consistent and renderable.
	PhaseReady
	// PhaseError means the last operation failed; ErrKind and ErrMessage
	// describe the failure.
	PhaseError
)

// String returns a readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseUnconfigured:
		return "unconfigured"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// ViewState is the tagged variant the presentation layer renders from. It
// replaces the loose loading/error/configured flag soup with one explicit
// state.
type ViewState struct {
	Phase      Phase
	ErrKind    string
	ErrMessage string
}

func viewReady() ViewState {
	return ViewState{Phase: PhaseReady}
}

func viewLoading() ViewState {
	return ViewState{Phase: PhaseLoading}
}

func viewError(err error) ViewState {
	if apperrors.IsConfig(err) {
		return ViewState{Phase: PhaseUnconfigured, ErrKind: "config", ErrMessage: err.Error()}
	}
	return ViewState{Phase: PhaseError, ErrKind: errorKind(err), ErrMessage: err.Error()}
}

func errorKind(err error) string {
	var (
		providerErr    *apperrors.ProviderError
		persistenceErr *apperrors.PersistenceError
		validationErr  *apperrors.ValidationError
	)
	switch {
	case apperrors.Is(err, apperrors.ErrNotAuthenticated):
		return "auth"
	case apperrors.As(err, &providerErr):
		return "provider"
	case apperrors.As(err, &persistenceErr):
		return "persistence"
	case apperrors.As(err, &validationErr):
		return "validation"
	default:
		return "unknown"
	}
}
