package application

import (
	"errors"
	"fmt"
)

// classify garantiza que err lleve el sentinel de la taxonomía sin duplicarlo.
func classify(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
