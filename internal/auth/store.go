package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// Store keeps operators in memory. It is filled from a users file at
// startup; the hub has no database of its own.
type Store struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewStore() *Store {
	return &Store{users: make(map[string]*User)}
}

func (s *Store) GetByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) Create(ctx context.Context, username, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.add(username, string(hash), "")
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *Store) add(username, hash, assignee string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return nil, ErrUserExists
	}
	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Assignee:     assignee,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[username] = u
	cp := *u
	return &cp, nil
}

type usersFile struct {
	Users []struct {
		Username     string `yaml:"username"`
		Password     string `yaml:"password"`
		PasswordHash string `yaml:"password_hash"`
		Assignee     string `yaml:"assignee"`
	} `yaml:"users"`
}

// SeedFromFile loads operators from YAML:
//
//	users:
//	  - username: ops
//	    password_hash: $2a$10$...
//	    assignee: user-1
//	  - username: demo
//	    password: demo
//
// Entries without a username or any password are skipped. Users already in
// the store are left alone.
func (s *Store) SeedFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read users: %w", err)
	}
	var uf usersFile
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return fmt.Errorf("parse users: %w", err)
	}
	for _, u := range uf.Users {
		if u.Username == "" || (u.Password == "" && u.PasswordHash == "") {
			continue
		}
		if _, err := s.GetByUsername(ctx, u.Username); err == nil {
			continue
		}
		hash := u.PasswordHash
		if hash == "" {
			b, herr := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if herr != nil {
				return fmt.Errorf("seed user %s: %w", u.Username, herr)
			}
			hash = string(b)
		}
		_, err = s.add(u.Username, hash, u.Assignee)
		if err != nil && !errors.Is(err, ErrUserExists) {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}
	return nil
}
