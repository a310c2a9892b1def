package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/RedHatInsights/identity-event-forwarder/internal/platform/logger"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

var (
	ErrTLSHandshake = errors.New("mqtt tls handshake failed")

	ErrBrokerConnect     = errors.New("mqtt broker connection failed")
	ErrConnectionLost    = errors.New("mqtt connection lost")
	ErrConnectionRefused = errors.New("mqtt connection refused")
	ErrHostUnreachable   = errors.New("mqtt host unreachable")
	ErrTimeout           = errors.New("mqtt connection timeout")
	ErrEOF               = errors.New("mqtt connection closed unexpectedly")
	ErrBrokenPipe        = errors.New("mqtt broken pipe")

	ErrProtocolVersion       = errors.New("mqtt unacceptable protocol version")
	ErrIdentifierRejected    = errors.New("mqtt client identifier rejected")
	ErrServerUnavailable     = errors.New("mqtt server unavailable")
	ErrBadUsernameOrPassword = errors.New("mqtt bad username or password")
	ErrNotAuthorized         = errors.New("mqtt not authorized")
)

// MQTT 3.1.1 CONNACK return codes
const (
	connackAccepted              = 0x00
	connackProtocolVersion       = 0x01
	connackIdentifierRejected    = 0x02
	connackServerUnavailable     = 0x03
	connackBadUsernameOrPassword = 0x04
	connackNotAuthorized         = 0x05
)

const (
	CategoryTLS      = "tls"
	CategoryNetwork  = "network"
	CategoryProtocol = "protocol"
	CategoryRuntime  = "runtime"
	CategoryUnknown  = "unknown"
)

// ConnectError pairs a sentinel Kind with the underlying cause so callers can use
// errors.Is on either.
type ConnectError struct {
	Kind     error
	Cause    error
	Category string
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
}

func (e *ConnectError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return e.Kind
}

func (e *ConnectError) Is(target error) bool {
	return target == e.Kind
}

func newConnectError(category string, kind error, cause error) *ConnectError {
	return &ConnectError{
		Kind:     kind,
		Cause:    cause,
		Category: category,
	}
}

func classifyConnectError(err error) *ConnectError {
	var tlsHeaderErr *tls.RecordHeaderError
	var unknownAuthErr x509.UnknownAuthorityError
	var certInvalidErr x509.CertificateInvalidError
	var hostErr x509.HostnameError

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return newConnectError(CategoryNetwork, ErrTimeout, err)
	}

	if errors.As(err, &tlsHeaderErr) || errors.As(err, &unknownAuthErr) || errors.As(err, &certInvalidErr) || errors.As(err, &hostErr) {
		return newConnectError(CategoryTLS, ErrTLSHandshake, err)
	}

	if kind := networkErrorKind(err); kind != nil {
		return newConnectError(CategoryNetwork, kind, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return newConnectError(CategoryNetwork, ErrBrokerConnect, err)
	}

	return newConnectError(CategoryUnknown, ErrBrokerConnect, err)
}

func classifyConnectionLostError(err error) *ConnectError {
	if err == nil {
		return newConnectError(CategoryRuntime, ErrConnectionLost, errors.New("connection lost"))
	}

	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return newConnectError(CategoryRuntime, ErrTimeout, err)
	}

	if kind := networkErrorKind(err); kind != nil && kind != ErrConnectionRefused && kind != ErrHostUnreachable {
		return newConnectError(CategoryRuntime, kind, err)
	}

	return newConnectError(CategoryRuntime, ErrConnectionLost, err)
}

// networkErrorKind maps errno values, and the text of untyped errors, onto the
// sentinel kinds.
func networkErrorKind(err error) error {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return ErrConnectionRefused
	case errors.Is(err, syscall.ECONNRESET):
		return ErrConnectionLost
	case errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH):
		return ErrHostUnreachable
	case errors.Is(err, io.EOF):
		return ErrEOF
	case errors.Is(err, syscall.EPIPE):
		return ErrBrokenPipe
	}

	lowerMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lowerMsg, "connection lost"), strings.Contains(lowerMsg, "keepalive"), strings.Contains(lowerMsg, "pingresp"):
		return ErrConnectionLost
	case strings.Contains(lowerMsg, "connection refused"):
		return ErrConnectionRefused
	case strings.Contains(lowerMsg, "host unreachable"):
		return ErrHostUnreachable
	case strings.Contains(lowerMsg, "timeout"):
		return ErrTimeout
	case strings.Contains(lowerMsg, "broken pipe"):
		return ErrBrokenPipe
	case strings.Contains(lowerMsg, "eof"):
		return ErrEOF
	}

	return nil
}

func classifyProtocolReturnCode(rc byte) error {
	var kind error

	switch rc {
	case connackAccepted:
		return nil
	case connackProtocolVersion:
		kind = ErrProtocolVersion
	case connackIdentifierRejected:
		kind = ErrIdentifierRejected
	case connackServerUnavailable:
		kind = ErrServerUnavailable
	case connackBadUsernameOrPassword:
		kind = ErrBadUsernameOrPassword
	case connackNotAuthorized:
		kind = ErrNotAuthorized
	default:
		kind = ErrBrokerConnect
	}

	return newConnectError(CategoryProtocol, kind, fmt.Errorf("connack=%d", rc))
}

// CreateBrokerConnection connects a paho client and waits up to connectTimeout
// for the CONNACK.
func CreateBrokerConnection(brokerUrl string, connectTimeout time.Duration, brokerConfigFuncs ...MqttClientOptionsFunc) (MQTT.Client, error) {

	connOpts, err := NewBrokerOptions(brokerUrl, brokerConfigFuncs...)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"error": err}).Error("Unable to build MQTT ClientOptions")
		return nil, err
	}

	mqttClient := MQTT.NewClient(connOpts)

	token := mqttClient.Connect()
	if !token.WaitTimeout(connectTimeout) {
		mqttClient.Disconnect(0)
		connectErr := newConnectError(CategoryNetwork, ErrTimeout, fmt.Errorf("no CONNACK within %s", connectTimeout))
		logger.Log.WithFields(logrus.Fields{"error": connectErr}).Error("Unable to connect to MQTT broker")
		return nil, connectErr
	}

	if ct, ok := token.(*MQTT.ConnectToken); ok {
		rc := ct.ReturnCode()
		if protoErr := classifyProtocolReturnCode(rc); protoErr != nil {
			logger.Log.WithFields(logrus.Fields{"error": protoErr, "connack_code": rc}).Error("MQTT CONNACK not accepted")
			return nil, protoErr
		}
	}

	if token.Error() != nil {
		connectErr := classifyConnectError(token.Error())
		logger.Log.WithFields(logrus.Fields{"error": connectErr}).Error("Unable to connect to MQTT broker")
		return nil, connectErr
	}

	logger.Log.Info("Connected to MQTT broker: ", brokerUrl)

	return mqttClient, nil
}
