// Package utils holds small helpers shared by the other packages.
package utils //nolint:revive // utils is an appropriate package name for utility functions

import (
	"fmt"

	"github.com/amp-labs/amp-lifecycle/errors"
)

// GetPanicRecoveryError converts a recovered panic value and optional stack
// trace into an error wrapping errors.ErrPanicRecovery. A nil value yields nil.
func GetPanicRecoveryError(recovered any, stack []byte) error {
	if recovered == nil {
		return nil
	}

	var err error
	if asErr, ok := recovered.(error); ok {
		err = fmt.Errorf("%w: %w", errors.ErrPanicRecovery, asErr)
	} else {
		err = fmt.Errorf("%w: %v", errors.ErrPanicRecovery, recovered)
	}

	if stack != nil {
		return fmt.Errorf("%w\nstack trace:\n%s", err, string(stack))
	}

	return err
}
