// Package session mints and validates the signed checkout credential issued
// after a successful phone verification. Tokens are stateless: validation is
// signature plus expiry, never a server-side lookup.
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidToken = errors.New("invalid session token")

// Claims is the decoded content of a valid session token.
type Claims struct {
	CustomerID primitive.ObjectID
	Phone      string
	ExpiresAt  time.Time
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the issuer clock. Tests only.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue signs a token binding the verified customer identity for the fixed
// session window.
func (i *Issuer) Issue(customerID primitive.ObjectID, phoneNumber string) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := jwt.MapClaims{
		"sub":   customerID.Hex(),
		"phone": phoneNumber,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse validates signature and expiry and returns the embedded identity
// reference. Any defect collapses into ErrInvalidToken; callers still have to
// resolve the customer before trusting the session.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	token, err := jwt.Parse(strings.TrimSpace(raw), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	customerID, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return nil, ErrInvalidToken
	}

	phoneNumber, _ := claims["phone"].(string)
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidToken
	}

	return &Claims{
		CustomerID: customerID,
		Phone:      phoneNumber,
		ExpiresAt:  exp.Time,
	}, nil
}
