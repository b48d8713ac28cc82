package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	HeaderPinlessTimestamp = "X-Pinless-Timestamp"
	HeaderPinlessSignature = "X-Pinless-Signature"
)

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStaleSignature   = errors.New("webhook timestamp outside tolerance")
)

// SignPinlessPayload returns base64(HMAC-SHA256(secret, timestamp + "." + body)).
// The secret is the base64 value shown in the Daily dashboard.
func SignPinlessPayload(secret, timestamp string, body []byte) (string, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to decode hmac secret: %w", err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (h *Handler) verifyPinlessSignature(c *gin.Context, body []byte) error {
	timestamp := c.GetHeader(HeaderPinlessTimestamp)
	signature := c.GetHeader(HeaderPinlessSignature)
	if timestamp == "" || signature == "" {
		return ErrMissingSignature
	}

	if h.opts.SignatureTolerance > 0 {
		if err := h.checkTimestamp(timestamp); err != nil {
			return err
		}
	}

	expected, err := SignPinlessPayload(h.opts.PinlessSecret, timestamp, body)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

func (h *Handler) checkTimestamp(timestamp string) error {
	var sent time.Time
	if secs, err := strconv.ParseInt(timestamp, 10, 64); err == nil {
		sent = time.Unix(secs, 0)
	} else if parsed, err := time.Parse(time.RFC3339, timestamp); err == nil {
		sent = parsed
	} else {
		return fmt.Errorf("%w: unparseable timestamp %q", ErrStaleSignature, timestamp)
	}

	age := h.now().Sub(sent)
	if age < 0 {
		age = -age
	}
	if age > h.opts.SignatureTolerance {
		return ErrStaleSignature
	}
	return nil
}
