package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	issuer := NewIssuer("topsecret", 30*time.Minute).WithClock(func() time.Time { return now })

	customerID := primitive.NewObjectID()
	token, expiresAt, err := issuer.Issue(customerID, "+40722123456")
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Minute), expiresAt)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, customerID, claims.CustomerID)
	assert.Equal(t, "+40722123456", claims.Phone)
	assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestParseRejectsExpiredToken(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	issuer := NewIssuer("topsecret", 30*time.Minute).WithClock(func() time.Time { return now })

	token, _, err := issuer.Issue(primitive.NewObjectID(), "+40722123456")
	require.NoError(t, err)

	now = now.Add(31 * time.Minute)
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	issuer := NewIssuer("topsecret", 30*time.Minute)
	token, _, err := issuer.Issue(primitive.NewObjectID(), "+40722123456")
	require.NoError(t, err)

	other := NewIssuer("othersecret", 30*time.Minute)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	issuer := NewIssuer("topsecret", 30*time.Minute)
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := issuer.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}
