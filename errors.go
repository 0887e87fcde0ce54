package datagrid

import "github.com/pkg/errors"

var (
	// ErrUnknownMutation is a programming error: a mutation the store has no
	// handler for. Commit panics with it.
	ErrUnknownMutation = errors.New("datagrid: unknown mutation")

	// ErrInvalidHeight is returned by Layout.SetHeight for values that are
	// neither a pixel number nor a numeric string.
	ErrInvalidHeight = errors.New("datagrid: invalid height")

	// ErrConfig wraps every configuration validation failure.
	ErrConfig = errors.New("datagrid: invalid config")
)
