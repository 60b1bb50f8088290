package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errNotFound = errors.New("not found")

func TestNew_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := New[string]("test", Config{MaxFailures: 2, OpenTimeout: time.Minute}, nil)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		_, err := cb.Execute(func() (string, error) { return "", boom })
		assert.ErrorIs(t, err, boom)
	}

	calls := 0
	_, err := cb.Execute(func() (string, error) {
		calls++
		return "ok", nil
	})
	assert.True(t, IsOpen(err))
	assert.Equal(t, 0, calls)
}

func TestNew_IgnoredErrorsDoNotTrip(t *testing.T) {
	cb := New[string]("test", Config{MaxFailures: 1, Ignore: []error{errNotFound}}, nil)

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (string, error) { return "", errNotFound })
		assert.ErrorIs(t, err, errNotFound)
	}

	v, err := cb.Execute(func() (string, error) { return "ok", nil })
	assert.NoError(t, err)
	assert.Equal(t, "ok", v)
}
