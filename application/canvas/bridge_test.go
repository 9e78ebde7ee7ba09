package canvas

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBridge_DispatchesToOwner(t *testing.T) {
	// Arrange
	bridge := NewBridge()
	var got string
	callback := bridge.Register("ab-cd", "user-1", func(ctx context.Context, renderID string) ClickOutcome {
		got = renderID
		return ClickSelected
	})

	// Act
	outcome := bridge.Dispatch(context.Background(), callback, "user-1", "n3")

	// Assert
	assert.Equal(t, "orgClick_abcd", callback)
	assert.Equal(t, ClickSelected, outcome)
	assert.Equal(t, "n3", got)
}

func TestBridge_RejectsOtherUsersAndUnknownCallbacks(t *testing.T) {
	bridge := NewBridge()
	callback := bridge.Register("t1", "user-1", func(context.Context, string) ClickOutcome { return ClickSelected })

	assert.Equal(t, ClickUnbound, bridge.Dispatch(context.Background(), callback, "user-2", "n0"))
	assert.Equal(t, ClickUnbound, bridge.Dispatch(context.Background(), "orgClick_nope", "user-1", "n0"))

	bridge.Deregister(callback)

	assert.Equal(t, ClickUnbound, bridge.Dispatch(context.Background(), callback, "user-1", "n0"))
	assert.Zero(t, bridge.Len())
}
