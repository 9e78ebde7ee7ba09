package auth

import (
	"os"
	"path/filepath"
	"testing"

	"pulse-backend/domain/org"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoUsers(t *testing.T) {
	store, err := DemoUsers()
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())

	tests := []struct {
		username string
		password string
		role     org.Role
	}{
		{"admin", "admin123", org.RoleAdmin},
		{"manager", "manager123", org.RoleManager},
		{"viewer", "viewer123", org.RoleViewer},
	}
	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			user, err := store.Authenticate(tt.username, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.role, user.Role)
		})
	}

	_, err = store.Authenticate("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = store.Authenticate("nobody", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoadUsers(t *testing.T) {
	// Arrange
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "users.yaml")
	content := "users:\n  - username: carol\n    password_hash: \"" + hash + "\"\n    role: manager\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// Act
	store, err := LoadUsers(path)

	// Assert
	require.NoError(t, err)
	user, err := store.Authenticate("carol", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, org.RoleManager, user.Role)
}

func TestNewUserStore_Rejects(t *testing.T) {
	_, err := NewUserStore([]User{{Username: "x", Role: org.Role("owner")}})
	assert.Error(t, err)

	_, err = NewUserStore([]User{{Username: "x", Role: org.RoleViewer}, {Username: "x", Role: org.RoleAdmin}})
	assert.Error(t, err)
}
