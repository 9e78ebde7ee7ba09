package auth

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"pulse-backend/domain/org"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password
var ErrInvalidCredentials = errors.New("invalid username or password")

// User is one account that may log in
type User struct {
	Username     string   `yaml:"username"`
	PasswordHash string   `yaml:"password_hash"`
	Role         org.Role `yaml:"role"`
}

type usersFile struct {
	Users []User `yaml:"users"`
}

// UserStore checks login credentials against bcrypt hashes
type UserStore struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewUserStore creates a store from a list of users
func NewUserStore(users []User) (*UserStore, error) {
	s := &UserStore{users: make(map[string]User, len(users))}
	for _, u := range users {
		if u.Username == "" {
			return nil, errors.New("user without username")
		}
		switch u.Role {
		case org.RoleAdmin, org.RoleManager, org.RoleViewer:
		default:
			return nil, fmt.Errorf("user %q: unknown role %q", u.Username, u.Role)
		}
		if _, dup := s.users[u.Username]; dup {
			return nil, fmt.Errorf("duplicate user %q", u.Username)
		}
		s.users[u.Username] = u
	}
	return s, nil
}

// LoadUsers reads a YAML users file:
//
//	users:
//	  - username: admin
//	    password_hash: $2a$10$...
//	    role: admin
func LoadUsers(path string) (*UserStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var file usersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}
	return NewUserStore(file.Users)
}

// DemoUsers returns the development accounts admin, manager and viewer,
// each with the password "<username>123".
func DemoUsers() (*UserStore, error) {
	roles := []org.Role{org.RoleAdmin, org.RoleManager, org.RoleViewer}
	users := make([]User, 0, len(roles))
	for _, role := range roles {
		hash, err := HashPassword(string(role) + "123")
		if err != nil {
			return nil, err
		}
		users = append(users, User{Username: string(role), PasswordHash: hash, Role: role})
	}
	return NewUserStore(users)
}

// HashPassword returns the bcrypt hash of a password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Authenticate returns the user when the password matches
func (s *UserStore) Authenticate(username, password string) (User, error) {
	s.mu.RLock()
	user, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Len returns the number of accounts
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
