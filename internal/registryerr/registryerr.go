// Package registryerr defines the error-kind taxonomy shared by the
// registry core, storage backends, and the handler layer, so the transport
// boundary can translate any error into the right machine-readable code
// without string-matching messages.
package registryerr

import "errors"

// Kind classifies an error for transport-level translation.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindPermission    Kind = "permission"
	KindStorage       Kind = "storage"
	KindConfiguration Kind = "configuration"
	KindInternal      Kind = "internal"
)

// Sentinel errors. Wrap these with fmt.Errorf("...: %w", Err*) to attach
// context while keeping errors.Is/errors.As working at the boundary.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrPermission    = errors.New("permission denied")
	ErrStorage       = errors.New("storage error")
	ErrConfiguration = errors.New("configuration error")
	ErrInternal      = errors.New("internal error")
)

var kindBySentinel = map[error]Kind{
	ErrValidation:    KindValidation,
	ErrNotFound:      KindNotFound,
	ErrConflict:      KindConflict,
	ErrPermission:    KindPermission,
	ErrStorage:       KindStorage,
	ErrConfiguration: KindConfiguration,
	ErrInternal:      KindInternal,
}

// Classify maps any error to a Kind by walking its wrap chain against the
// known sentinels. Unrecognized errors classify as KindInternal.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	for sentinel, kind := range kindBySentinel {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}
