package userdir

import (
	"errors"
	"fmt"
)

// ErrUserNotFound is returned when a login is not present in the directory
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicateLogin is returned when the configuration defines the same login twice
type ErrDuplicateLogin struct {
	Login string
}

func (e ErrDuplicateLogin) Error() string {
	return fmt.Sprintf("duplicate login in user configuration: %s", e.Login)
}
