// Package qrtoken issues and verifies the short-lived signed identifiers
// behind the printed QR codes. A token proves "this scan came from QR code
// X during its TTL" without a per-scan store lookup for authenticity; the
// only store read on verify is the code's active/inactive status.
package qrtoken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/canteenhq/go-canteen-dining/internal/dining"
)

const version = "v1"

type Registry interface {
	GetQRCode(ctx context.Context, id string) (*dining.QRCode, error)
}

type Service struct {
	Secret   []byte
	TTL      time.Duration
	Registry Registry

	// Now is overridable for tests; nil means time.Now.
	Now func() time.Time
}

type Token struct {
	Value     string    `json:"token"`
	QRCodeID  string    `json:"qr_code_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Issue signs a token for an active QR code.
func (s *Service) Issue(ctx context.Context, qrCodeID string) (*Token, error) {
	code, err := s.Registry.GetQRCode(ctx, qrCodeID)
	if err != nil {
		return nil, err
	}
	if code.Status != dining.QRActive {
		return nil, dining.E(dining.KindTokenRevoked, "qr code is not in service")
	}

	issued := s.now()
	expires := issued.Add(s.TTL)
	payload := encodePayload(qrCodeID, issued, expires)
	return &Token{
		Value:     payload + "." + s.sign(payload),
		QRCodeID:  qrCodeID,
		IssuedAt:  issued,
		ExpiresAt: expires,
	}, nil
}

// Verify checks a token and returns the QR code id it is bound to. It
// fails closed with a distinguishable reason: tampered or malformed ->
// token-invalid, past TTL -> token-expired, inactive code -> token-revoked.
// Verifying the same token twice gives the same answer.
func (s *Service) Verify(ctx context.Context, token string) (string, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok {
		return "", dining.E(dining.KindTokenInvalid, "malformed token")
	}
	if !hmac.Equal([]byte(s.sign(payload)), []byte(sig)) {
		return "", dining.E(dining.KindTokenInvalid, "token signature mismatch")
	}

	qrCodeID, _, expires, err := decodePayload(payload)
	if err != nil {
		return "", err
	}
	if !s.now().Before(expires) {
		return "", dining.E(dining.KindTokenExpired, "token expired, refresh the code")
	}

	code, err := s.Registry.GetQRCode(ctx, qrCodeID)
	if err != nil {
		if dining.KindOf(err) == dining.KindNotFound {
			return "", dining.E(dining.KindTokenInvalid, "token references an unknown qr code")
		}
		return "", err
	}
	if code.Status != dining.QRActive {
		return "", dining.E(dining.KindTokenRevoked, "qr code is no longer in service")
	}
	return qrCodeID, nil
}

func (s *Service) sign(payload string) string {
	mac := hmac.New(sha256.New, s.Secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func encodePayload(id string, issued, expires time.Time) string {
	raw := fmt.Sprintf("%s|%s|%d|%d", version, id, issued.Unix(), expires.Unix())
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodePayload(payload string) (id string, issued, expires time.Time, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", time.Time{}, time.Time{}, dining.E(dining.KindTokenInvalid, "malformed token")
	}
	parts := strings.Split(string(raw), "|")
	if len(parts) != 4 || parts[0] != version || parts[1] == "" {
		return "", time.Time{}, time.Time{}, dining.E(dining.KindTokenInvalid, "malformed token")
	}
	iss, err1 := strconv.ParseInt(parts[2], 10, 64)
	exp, err2 := strconv.ParseInt(parts[3], 10, 64)
	if err1 != nil || err2 != nil {
		return "", time.Time{}, time.Time{}, dining.E(dining.KindTokenInvalid, "malformed token")
	}
	return parts[1], time.Unix(iss, 0), time.Unix(exp, 0), nil
}
