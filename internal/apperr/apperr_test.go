package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create invite: %w", NotFound("enquiry"))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(err, KindValidation))
	assert.Equal(t, "create invite: enquiry not found", err.Error())
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("connection reset")))
	assert.False(t, Is(nil, KindInternal))
}

func TestError_Message(t *testing.T) {
	err := Precondition("application is incomplete", "residentialId", "refereeId")
	assert.Equal(t, "application is incomplete (missing: residentialId, refereeId)", err.Error())

	wrapped := &Error{Kind: KindDuplicate, Message: "tenant already created", Err: errors.New("23505")}
	assert.Equal(t, "tenant already created: 23505", wrapped.Error())
	assert.Equal(t, "duplicate", wrapped.Kind.String())
}

func TestAs(t *testing.T) {
	e, ok := As(fmt.Errorf("outer: %w", Validation("invalid response %q", "MAYBE")))
	assert.True(t, ok)
	assert.Equal(t, `invalid response "MAYBE"`, e.Message)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}
