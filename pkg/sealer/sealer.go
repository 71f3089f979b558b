// Package sealer produces the opaque quote tokens echoed back on booking
// creation. A token binds the quoted terms together so a client cannot mix
// a discount from one quote with the window of another; the server still
// reprices on create regardless.
package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// QuoteTerms are the fields a quote token seals.
type QuoteTerms struct {
	AssetID       string
	StartTime     time.Time
	EndTime       time.Time
	PromotionCode string
	FinalAmount   int64
}

type Sealer struct {
	key []byte
}

// New builds a Sealer from a base64-encoded 256-bit key.
func New(base64Key string) (*Sealer, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("quote token key is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("quote token key must be 32 bytes, got %d", len(key))
	}
	return &Sealer{key: key}, nil
}

func (s *Sealer) Seal(terms QuoteTerms) (string, error) {
	plaintext := []byte(strings.Join([]string{
		terms.AssetID,
		strconv.FormatInt(terms.StartTime.Unix(), 10),
		strconv.FormatInt(terms.EndTime.Unix(), 10),
		terms.PromotionCode,
		strconv.FormatInt(terms.FinalAmount, 10),
	}, ":"))

	aesgcm, err := s.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := aesgcm.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

func (s *Sealer) Open(token string) (*QuoteTerms, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token encoding: %w", err)
	}

	aesgcm, err := s.aead()
	if err != nil {
		return nil, err
	}

	nonceSize := aesgcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("token too short")
	}

	pt, err := aesgcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("token failed authentication: %w", err)
	}

	parts := strings.SplitN(string(pt), ":", 5)
	if len(parts) != 5 {
		return nil, fmt.Errorf("invalid token format")
	}

	startUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid token start time: %w", err)
	}
	endUnix, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid token end time: %w", err)
	}
	amount, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid token amount: %w", err)
	}

	return &QuoteTerms{
		AssetID:       parts[0],
		StartTime:     time.Unix(startUnix, 0).UTC(),
		EndTime:       time.Unix(endUnix, 0).UTC(),
		PromotionCode: parts[3],
		FinalAmount:   amount,
	}, nil
}

func (s *Sealer) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
