package mqtt

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"
)

func init() {
	logger.InitLogger()
}

func TestClassifyConnectError(t *testing.T) {
	testCases := []struct {
		err      error
		kind     error
		category string
	}{
		{&net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, ErrConnectionRefused, CategoryNetwork},
		{&net.OpError{Op: "dial", Err: syscall.EHOSTUNREACH}, ErrHostUnreachable, CategoryNetwork},
		{&net.OpError{Op: "dial", Err: errors.New("something odd")}, ErrBrokerConnect, CategoryNetwork},
		{fmt.Errorf("read: %w", io.EOF), ErrEOF, CategoryNetwork},
		{errors.New("network Error : dial tcp: i/o timeout"), ErrTimeout, CategoryNetwork},
		{errors.New("who knows"), ErrBrokerConnect, CategoryUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			ce := classifyConnectError(tc.err)

			if !errors.Is(ce, tc.kind) {
				t.Fatalf("expected kind %v, got %v", tc.kind, ce.Kind)
			}

			if ce.Category != tc.category {
				t.Fatalf("expected category %s, got %s", tc.category, ce.Category)
			}

			if !errors.Is(ce, tc.err) {
				t.Fatalf("classified error does not wrap its cause")
			}
		})
	}
}

func TestClassifyConnectionLostError(t *testing.T) {
	if ce := classifyConnectionLostError(nil); !errors.Is(ce, ErrConnectionLost) {
		t.Fatalf("expected connection lost for a nil cause, got %v", ce)
	}

	ce := classifyConnectionLostError(errors.New("pingresp not received, disconnecting"))
	if !errors.Is(ce, ErrConnectionLost) || ce.Category != CategoryRuntime {
		t.Fatalf("unexpected classification %v / %s", ce, ce.Category)
	}

	ce = classifyConnectionLostError(fmt.Errorf("write: %w", syscall.EPIPE))
	if !errors.Is(ce, ErrBrokenPipe) {
		t.Fatalf("expected broken pipe, got %v", ce)
	}

	original := newConnectError(CategoryTLS, ErrTLSHandshake, errors.New("bad cert"))
	if classifyConnectionLostError(original) != original {
		t.Fatalf("an already classified error should be returned as is")
	}
}

func TestClassifyProtocolReturnCode(t *testing.T) {
	if err := classifyProtocolReturnCode(connackAccepted); err != nil {
		t.Fatalf("accepted CONNACK should not be an error: %v", err)
	}

	testCases := map[byte]error{
		connackProtocolVersion:       ErrProtocolVersion,
		connackIdentifierRejected:    ErrIdentifierRejected,
		connackServerUnavailable:     ErrServerUnavailable,
		connackBadUsernameOrPassword: ErrBadUsernameOrPassword,
		connackNotAuthorized:         ErrNotAuthorized,
		0x80:                         ErrBrokerConnect,
	}

	for rc, kind := range testCases {
		if err := classifyProtocolReturnCode(rc); !errors.Is(err, kind) {
			t.Fatalf("rc %d: expected %v, got %v", rc, kind, err)
		}
	}
}
