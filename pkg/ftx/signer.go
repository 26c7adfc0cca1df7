package ftx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

// Security is the authentication level a request needs.
type Security int

const (
	SecurityNone Security = iota
	SecuritySigned
)

const (
	HeaderKey       = "FTX-KEY"
	HeaderSign      = "FTX-SIGN"
	HeaderTimestamp = "FTX-TS"

	websocketLoginSuffix = "websocket_login"
)

type Signer struct {
	key    string
	secret []byte
	now    func() time.Time
}

// NewSigner fails on missing credentials so the error surfaces at connect time.
func NewSigner(key, secret string) (*Signer, error) {
	if key == "" || secret == "" {
		return nil, ErrMissingCredentials
	}
	return &Signer{
		key:    key,
		secret: []byte(secret),
		now:    time.Now,
	}, nil
}

func (s *Signer) Key() string {
	return s.key
}

// Sign returns the hex HMAC-SHA256 of payload keyed by secret.
func Sign(secret []byte, payload string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// RequestPayload is ts + METHOD + path [+ body]; path includes any query string.
func RequestPayload(ts int64, method, path string, body []byte) string {
	payload := strconv.FormatInt(ts, 10) + method + path
	if len(body) > 0 {
		payload += string(body)
	}
	return payload
}

func (s *Signer) SignRequest(method, path string, body []byte) http.Header {
	return s.SignRequestAt(s.now().UnixMilli(), method, path, body)
}

func (s *Signer) SignRequestAt(ts int64, method, path string, body []byte) http.Header {
	header := http.Header{}
	if len(body) > 0 {
		header.Set("Content-Type", "application/json")
	}
	header.Set(HeaderKey, s.key)
	header.Set(HeaderSign, Sign(s.secret, RequestPayload(ts, method, path, body)))
	header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	return header
}

func (s *Signer) LoginFrame() *LoginFrame {
	return s.LoginFrameAt(s.now().UnixMilli())
}

func (s *Signer) LoginFrameAt(ts int64) *LoginFrame {
	payload := strconv.FormatInt(ts, 10) + websocketLoginSuffix
	return &LoginFrame{
		Op: opLogin,
		Args: LoginArgs{
			Key:  s.key,
			Sign: Sign(s.secret, payload),
			Time: ts,
		},
	}
}
