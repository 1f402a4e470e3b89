package serdes

import (
	"errors"
	"fmt"

	"projects/internal/rowstore"
	dErrors "projects/pkg/domain-errors"
	"projects/pkg/platform/sentinel"
)

var errNarrow = errors.New("value does not fit")

func configErrorf(format string, args ...any) error {
	return dErrors.Newf(dErrors.CodeConfiguration, format, args...)
}

func internalErrorf(format string, args ...any) error {
	return dErrors.Newf(dErrors.CodeInternal, format, args...)
}

// classify gives an uncoded failure the domain code that matches its cause.
// Errors that already carry a code pass through unchanged.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.CodeOf(err); ok {
		return err
	}
	switch {
	case errors.Is(err, rowstore.ErrNoSuchRow), errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	case errors.Is(err, rowstore.ErrUnsupportedType):
		return dErrors.Wrap(err, dErrors.CodeUnsupportedType, msg)
	case errors.Is(err, rowstore.ErrNoSuchColumn):
		return dErrors.Wrap(err, dErrors.CodeConfiguration, msg)
	case errors.Is(err, errNarrow):
		return dErrors.Wrap(err, dErrors.CodeNoSuchConstructor, msg)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeStore, msg)
	}
}

func keyString(table string, pk any) string {
	return fmt.Sprintf("%s#%v", table, pk)
}
