package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrBadToken = errors.New("invalid token")

type Role string

const (
	RoleApplicant Role = "applicant"
	RoleAdmin     Role = "admin"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	ID    string
	Email string
	Name  string
	Role  Role
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies session tokens. Static tokens (for admin
// tooling) authenticate as an admin service identity.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	admins map[string]struct{}
	static map[string]struct{}
}

func NewSessions(secret string, ttl time.Duration, admins, staticTokens []string) *Sessions {
	s := &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		admins: make(map[string]struct{}),
		static: make(map[string]struct{}),
	}
	for _, a := range admins {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			s.admins[a] = struct{}{}
		}
	}
	for _, t := range staticTokens {
		if t = strings.TrimSpace(t); t != "" {
			s.static[t] = struct{}{}
		}
	}
	return s
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

// RoleFor grants admin to configured admin emails.
func (s *Sessions) RoleFor(email string) Role {
	if _, ok := s.admins[strings.ToLower(email)]; ok {
		return RoleAdmin
	}
	return RoleApplicant
}

// Issue signs a session token for the user.
func (s *Sessions) Issue(id, email, name string) (string, Identity, error) {
	who := Identity{ID: id, Email: email, Name: name, Role: s.RoleFor(email)}
	now := time.Now()
	c := Claims{
		Email: email,
		Name:  name,
		Role:  who.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", Identity{}, err
	}
	return tok, who, nil
}

// Parse verifies raw as a session token or a static token.
func (s *Sessions) Parse(raw string) (Identity, error) {
	if _, ok := s.static[raw]; ok {
		return Identity{ID: "static-token", Role: RoleAdmin}, nil
	}

	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return s.secret, nil
	}, jwt.WithLeeway(5*time.Second))
	if err != nil {
		return Identity{}, err
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || c.Subject == "" {
		return Identity{}, ErrBadToken
	}

	// admin list changes take effect without re-login
	return Identity{ID: c.Subject, Email: c.Email, Name: c.Name, Role: s.RoleFor(c.Email)}, nil
}
