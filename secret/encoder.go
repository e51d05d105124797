// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package secret obfuscates sensitive config values before they reach the
// legacy store.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	encodedPrefix     = "v1:"
	saltLength        = 16
	defaultKeyLength  = 32
	defaultIterations = 4096
)

// ErrInvalidEncoding is returned when decoding a value not produced by the encoder.
var ErrInvalidEncoding = errors.New("invalid encoded secret")

// Encoder turns cleartext values into their persisted form and back.
type Encoder interface {
	Encode(cleartext string) (string, error)
	Decode(encoded string) (string, error)
}

// AESEncoder encrypts values with AES-GCM under a key derived from a shared
// secret with PBKDF2. Every encoding uses a fresh salt and nonce.
type AESEncoder struct {
	secret     []byte
	iterations int
	keyLength  int
}

var _ Encoder = (*AESEncoder)(nil)

// EncoderOption configures the AESEncoder
type EncoderOption func(*AESEncoder)

// WithIterations sets the PBKDF2 iteration count
func WithIterations(iterations int) EncoderOption {
	return func(e *AESEncoder) { e.iterations = iterations }
}

// WithKeyLength sets the AES key length in bytes: 16, 24 or 32
func WithKeyLength(length int) EncoderOption {
	return func(e *AESEncoder) { e.keyLength = length }
}

// NewAESEncoder creates an AESEncoder keyed by secret
func NewAESEncoder(secret string, opts ...EncoderOption) (*AESEncoder, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("encoder secret is required")
	}

	encoder := &AESEncoder{
		secret:     []byte(secret),
		iterations: defaultIterations,
		keyLength:  defaultKeyLength,
	}

	for _, opt := range opts {
		opt(encoder)
	}

	switch encoder.keyLength {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("invalid key length %d", encoder.keyLength)
	}

	if encoder.iterations <= 0 {
		return nil, fmt.Errorf("invalid iteration count %d", encoder.iterations)
	}
	return encoder, nil
}

// Encode implements Encoder.
func (e *AESEncoder) Encode(cleartext string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := e.aead(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(cleartext), nil)
	payload := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	payload = append(payload, salt...)
	payload = append(payload, nonce...)
	payload = append(payload, sealed...)
	return encodedPrefix + base64.StdEncoding.EncodeToString(payload), nil
}

// Decode implements Encoder.
func (e *AESEncoder) Decode(encoded string) (string, error) {
	if !IsEncoded(encoded) {
		return "", ErrInvalidEncoding
	}

	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(encoded, encodedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}

	if len(payload) < saltLength {
		return "", ErrInvalidEncoding
	}

	salt := payload[:saltLength]
	aead, err := e.aead(salt)
	if err != nil {
		return "", err
	}

	rest := payload[saltLength:]
	if len(rest) < aead.NonceSize() {
		return "", ErrInvalidEncoding
	}

	cleartext, err := aead.Open(nil, rest[:aead.NonceSize()], rest[aead.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	return string(cleartext), nil
}

// IsEncoded reports whether value looks like the output of an AESEncoder.
func IsEncoded(value string) bool {
	return strings.HasPrefix(value, encodedPrefix)
}

func (e *AESEncoder) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(e.secret, salt, e.iterations, e.keyLength, sha512.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
