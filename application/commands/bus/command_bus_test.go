package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pingCommand struct {
	valid bool
}

func (c pingCommand) Validate() error {
	if !c.valid {
		return errors.New("invalid ping")
	}
	return nil
}

func TestCommandBus_DispatchesThroughMiddleware(t *testing.T) {
	// Arrange
	commandBus := NewCommandBus()
	var order []string
	require.NoError(t, commandBus.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		order = append(order, "handler")
		return nil
	})))
	trace := func(name string) Middleware {
		return func(next CommandHandler) CommandHandler {
			return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
				order = append(order, name)
				return next.Handle(ctx, cmd)
			})
		}
	}
	commandBus.Use(trace("outer"), trace("inner"), LoggingMiddleware(zap.NewNop()))

	// Act
	err := commandBus.Send(context.Background(), pingCommand{valid: true})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestCommandBus_RejectsInvalidCommand(t *testing.T) {
	commandBus := NewCommandBus()
	called := false
	require.NoError(t, commandBus.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		called = true
		return nil
	})))

	err := commandBus.Send(context.Background(), pingCommand{})

	assert.Error(t, err)
	assert.False(t, called)
}

func TestCommandBus_WrapsHandlerErrors(t *testing.T) {
	commandBus := NewCommandBus()
	sentinel := errors.New("boom")
	require.NoError(t, commandBus.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		return sentinel
	})))

	err := commandBus.Send(context.Background(), pingCommand{valid: true})

	assert.ErrorIs(t, err, sentinel)
}

func TestCommandBus_DuplicateRegistration(t *testing.T) {
	commandBus := NewCommandBus()
	handler := CommandHandlerFunc(func(ctx context.Context, cmd Command) error { return nil })

	require.NoError(t, commandBus.Register(pingCommand{}, handler))
	assert.Error(t, commandBus.Register(pingCommand{}, handler))
}
