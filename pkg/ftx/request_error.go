package ftx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/pkg/errors"
)

type ErrorKind int

const (
	// KindTransient covers connection resets, timeouts and TLS failures.
	KindTransient ErrorKind = iota
	KindTerminal
	// KindRejected is a non-2xx reply from the exchange.
	KindRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindTerminal:
		return "terminal"
	case KindRejected:
		return "rejected"
	}
	return "unknown"
}

type RequestError struct {
	Kind       ErrorKind
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Kind == KindRejected {
		return fmt.Sprintf("%s %s: status code %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: %s error: %v", e.Method, e.Path, e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of err, KindTerminal when err is not a RequestError.
func KindOf(err error) ErrorKind {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind
	}
	return KindTerminal
}

func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindTransient
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return KindTransient
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return KindTransient
	}
	var authorityErr x509.UnknownAuthorityError
	if errors.As(err, &authorityErr) {
		return KindTransient
	}
	return KindTerminal
}
