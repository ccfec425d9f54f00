package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitFatal, exitCode(errors.New("boom")))
	assert.Equal(t, exitUsage, exitCode(withCode(exitUsage, errors.New("bad flag"))))
	assert.Equal(t, exitUsage, exitCode(fmt.Errorf("wrapped: %w", withCode(exitUsage, errors.New("bad flag")))))
	assert.NoError(t, withCode(exitFatal, nil))
}
