package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeToken(t *testing.T) {
	date := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)

	token := EncodeToken(date)
	assert.NotEmpty(t, token, "Token should not be empty")

	decoded, err := DecodeToken(token)
	require.NoError(t, err)
	assert.True(t, date.Equal(decoded), "Date should match after decode")
}

func TestEncodeToken_DropsTimeOfDay(t *testing.T) {
	withTime := time.Date(2024, 3, 1, 17, 45, 0, 0, time.UTC)

	decoded, err := DecodeToken(EncodeToken(withTime))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), decoded)
}

func TestDecodeTokenError(t *testing.T) {
	_, err := DecodeToken("this is not base64!")
	assert.Error(t, err, "Should return an error for invalid base64")
	assert.Contains(t, err.Error(), "base64 decode")

	noSeparator := base64.URLEncoding.EncodeToString([]byte("2024-01-01"))
	_, err = DecodeToken(noSeparator)
	assert.Error(t, err, "Should return an error for a token without prefix")
	assert.Contains(t, err.Error(), "split")

	wrongPrefix := base64.URLEncoding.EncodeToString([]byte("jrn|2024-01-01"))
	_, err = DecodeToken(wrongPrefix)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "split")

	badDate := base64.URLEncoding.EncodeToString([]byte("occ|notadate"))
	_, err = DecodeToken(badDate)
	assert.Error(t, err, "Should return an error for invalid date format")
	assert.Contains(t, err.Error(), "date parse")
}
