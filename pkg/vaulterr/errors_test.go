package vaulterr

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIOErrorNilPassthrough(t *testing.T) {
	require.NoError(t, NewIOError("rename", "/tmp/x", nil))
}

func TestIOErrorUnwrapAndErrno(t *testing.T) {
	_, err := os.Open("/no/such/path/vaultstore-test")
	require.Error(t, err)

	wrapped := NewIOError("open", "/no/such/path/vaultstore-test", err)
	var ioErr *IOError
	require.True(t, errors.As(wrapped, &ioErr))
	require.ErrorIs(t, wrapped, err)

	_, ok := ioErr.Errno()
	require.True(t, ok)
}

func TestErrorKindsFormatAndAs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target interface{}
	}{
		{"validation", &ValidationError{Model: "progNote", Err: errors.New("missing status")}, new(*ValidationError)},
		{"integrity", &IntegrityError{Path: "/data/clientFile/x", Reason: "id mismatch"}, new(*IntegrityError)},
		{"notfound", &ObjectNotFoundError{Collection: "clientFile", ID: "abc"}, new(*ObjectNotFoundError)},
		{"lockinuse", &LockInUseError{LockID: "clientFile-abc", UserName: "admin"}, new(*LockInUseError)},
		{"unknownuser", &UnknownUserNameError{UserName: "nope"}, new(*UnknownUserNameError)},
		{"incorrectpassword", &IncorrectPasswordError{UserName: "admin"}, new(*IncorrectPasswordError)},
		{"deactivated", &DeactivatedAccountError{UserName: "admin"}, new(*DeactivatedAccountError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotEmpty(t, tt.err.Error())
			require.ErrorAs(t, fmt.Errorf("wrapped: %w", tt.err), tt.target)
		})
	}
}
