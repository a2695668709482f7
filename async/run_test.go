package async

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	assert := assert.New(t)
	a := <-Run(func() int {
		return 123
	})
	assert.Equal(a, 123)
}

func TestRunError(t *testing.T) {
	assert := assert.New(t)
	exampleError := errors.New("example error")
	err := <-Run(func() error {
		return exampleError
	})
	assert.ErrorIs(err, exampleError)
}
