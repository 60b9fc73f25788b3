package qerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindAccessorsMatchTable(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{NewSyntaxError(3, 7, "unexpected token"), KindSyntax},
		{NewUnknownPrefixError("ex"), KindUnknownPrefix},
		{NewSchemaInvariantError("literal in predicate position"), KindSchemaInvariant},
		{NewTypeError("?x + \"abc\""), KindType},
		{&StorageFullError{}, KindStorageFull},
		{NewStorageIOError("fsync", errors.New("disk full")), KindStorageIO},
		{ErrCanceled, KindCanceled},
		{NewDisposedError("store"), KindDisposed},
	}
	for _, c := range cases {
		k, ok := c.err.(interface{ Kind() Kind })
		if assert.True(t, ok, "%T must expose Kind()", c.err) {
			assert.Equal(t, c.want, k.Kind())
		}
	}
}

func TestSyntaxErrorMessageCarriesPosition(t *testing.T) {
	err := NewSyntaxError(12, 4, "unterminated literal")
	assert.Contains(t, err.Error(), "12:4")
	assert.Contains(t, err.Error(), "unterminated literal")
}

func TestStorageIOErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageIOError("checkpoint", cause)
	assert.ErrorIs(t, err, cause)
}

func TestWrappedErrorsSupportErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("assert failed: %w", NewSchemaInvariantError("bad predicate"))

	var se *SchemaInvariantError
	assert.True(t, errors.As(wrapped, &se))
	assert.Equal(t, "bad predicate", se.Message)

	var te *TypeError
	assert.False(t, errors.As(wrapped, &te))
}

func TestErrCanceledIsASingleton(t *testing.T) {
	assert.True(t, errors.Is(ErrCanceled, ErrCanceled))
	assert.ErrorIs(t, fmt.Errorf("query aborted: %w", ErrCanceled), ErrCanceled)
}
