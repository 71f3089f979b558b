package sealer

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString(make([]byte, 32))
}

func TestSealer_RoundTrip(t *testing.T) {
	s, err := New(testKey())
	require.NoError(t, err)

	terms := QuoteTerms{
		AssetID:       "66f0c2a91b2c3d4e5f6a7b8c",
		StartTime:     time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC),
		PromotionCode: "FIRST50",
		FinalAmount:   17000,
	}

	token, err := s.Seal(terms)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	opened, err := s.Open(token)
	require.NoError(t, err)
	require.Equal(t, terms.AssetID, opened.AssetID)
	require.True(t, terms.StartTime.Equal(opened.StartTime))
	require.True(t, terms.EndTime.Equal(opened.EndTime))
	require.Equal(t, terms.PromotionCode, opened.PromotionCode)
	require.Equal(t, terms.FinalAmount, opened.FinalAmount)
}

func TestSealer_TamperedTokenRejected(t *testing.T) {
	s, err := New(testKey())
	require.NoError(t, err)

	token, err := s.Seal(QuoteTerms{AssetID: "66f0c2a91b2c3d4e5f6a7b8c", FinalAmount: 100})
	require.NoError(t, err)

	tampered := []byte(token)
	tampered[len(tampered)-1] ^= 'x'

	_, err = s.Open(string(tampered))
	require.Error(t, err)
}

func TestSealer_RejectsBadKey(t *testing.T) {
	_, err := New("not-base64!!")
	require.Error(t, err)

	_, err = New(base64.StdEncoding.EncodeToString([]byte("short")))
	require.Error(t, err)
}
