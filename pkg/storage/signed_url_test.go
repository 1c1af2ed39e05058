package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("export-1", "reports/class-x1.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	exportID, path, parsedExpiry, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "export-1", exportID)
	assert.Equal(t, "reports/class-x1.csv", path)
	assert.True(t, expiresAt.Equal(parsedExpiry))
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	issued := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issued }

	token, _, err := signer.Generate("export-1", "reports/file.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return issued.Add(2 * time.Minute) }
	exportID, _, _, err := signer.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, "export-1", exportID)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("export-1", "reports/file.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "export-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, _, err = NewSignedURLSigner("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, _, err = signer.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignedURLSignerValidation(t *testing.T) {
	_, _, err := NewSignedURLSigner("", time.Hour).Generate("export-1", "a.csv")
	assert.Error(t, err)

	_, _, err = NewSignedURLSigner("secret", time.Hour).Generate("export.1", "a.csv")
	assert.Error(t, err)
}
