// Package auth implements the stateless token service shared by the auth and
// file servers. Tokens are HS256-signed JWTs carrying the subject (user id)
// and a kind discriminator; verification needs only the shared secret, so the
// file server can validate tokens issued by the auth server without a network
// round-trip.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Kind discriminates access tokens from refresh tokens. The two are
// structurally identical but never accepted interchangeably.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims extends the registered JWT claims with the token kind.
// The user id travels in the standard "sub" claim.
type Claims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"kind"`
}

// TokenInfo is the verified view of a token returned by Verify.
type TokenInfo struct {
	SubjectID string
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Service issues and verifies signed, expiring tokens. It holds no mutable
// state and is safe for unsynchronized concurrent use.
type Service struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService builds a token service around the shared HMAC secret.
// accessTTL and refreshTTL are the default validity windows used by
// IssueAccess and IssueRefresh.
func NewService(secret []byte, issuer, audience string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		secret:     secret,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issue signs a token of the given kind for subjectID, valid for ttl from now.
// An empty subjectID is rejected with common.ErrInvalidInput.
func (s *Service) Issue(subjectID string, kind Kind, ttl time.Duration) (string, error) {
	if subjectID == "" {
		return "", common.ErrInvalidInput
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	})

	return token.SignedString(s.secret)
}

// IssueAccess issues an access token with the service default TTL.
func (s *Service) IssueAccess(subjectID string) (string, error) {
	return s.Issue(subjectID, KindAccess, s.accessTTL)
}

// IssueRefresh issues a refresh token with the service default TTL.
func (s *Service) IssueRefresh(subjectID string) (string, error) {
	return s.Issue(subjectID, KindRefresh, s.refreshTTL)
}

// StripBearer removes a leading "Bearer " scheme marker, if present.
// Matching is case-insensitive; a bare token passes through unchanged.
func StripBearer(tokenString string) string {
	const prefix = "bearer "
	if len(tokenString) > len(prefix) && strings.EqualFold(tokenString[:len(prefix)], prefix) {
		return strings.TrimSpace(tokenString[len(prefix):])
	}
	return tokenString
}

// Verify parses and validates a token string, with or without a "Bearer "
// prefix. It returns common.ErrTokenExpired for expired tokens,
// common.ErrTokenNotYetValid when a not-before claim is in the future, and
// common.ErrTokenMalformed for anything that does not parse or whose
// signature does not check out.
func (s *Service) Verify(tokenString string) (*TokenInfo, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(StripBearer(tokenString), claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, common.ErrTokenNotYetValid
		default:
			return nil, common.ErrTokenMalformed
		}
	}
	if !token.Valid {
		return nil, common.ErrTokenMalformed
	}

	info := &TokenInfo{
		SubjectID: claims.Subject,
		Kind:      claims.Kind,
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// VerifyKind verifies the token and additionally requires it to be of the
// wanted kind. A syntactically valid token of the other kind fails with
// common.ErrWrongTokenKind.
func (s *Service) VerifyKind(tokenString string, want Kind) (*TokenInfo, error) {
	info, err := s.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if info.Kind != want {
		return nil, common.ErrWrongTokenKind
	}
	return info, nil
}

// IsExpired reports whether the token is explicitly expired. Any other
// verification failure means expiry cannot be determined and reports false.
func (s *Service) IsExpired(tokenString string) bool {
	_, err := s.Verify(tokenString)
	return errors.Is(err, common.ErrTokenExpired)
}
