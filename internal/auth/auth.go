package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionTTL = 24 * time.Hour
	issuer     = "alarmhub"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Claims identify the operator behind a board connection. Assignee is what
// goes into assignedTo when the operator takes an incident.
type Claims struct {
	Username string `json:"username"`
	Assignee string `json:"assignee"`
	jwt.RegisteredClaims
}

// Session is handed back on login. The token works both as a bearer header
// and as ?token= on the websocket handshake.
type Session struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service signs and checks operator sessions with one shared HS256 secret.
type Service struct {
	store  *Store
	secret []byte
	now    func() time.Time
}

func NewService(store *Store, secret string) *Service {
	return &Service{store: store, secret: []byte(secret), now: time.Now}
}

// Login checks the password and opens a session. Unknown users and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.open(user)
}

func (s *Service) open(user *User) (Session, error) {
	now := s.now().UTC()
	exp := now.Add(sessionTTL)
	claims := Claims{
		Username: user.Username,
		Assignee: user.AssigneeID(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: token, ExpiresAt: exp}, nil
}

// Verify returns the claims of a token this service signed and that has not
// expired yet.
func (s *Service) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Assignee == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
