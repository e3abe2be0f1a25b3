package core

import (
	"context"
	"regexp"
	"strings"
)

type (
	// SMSResult is the uniform outcome of a text-message dispatch. Transports
	// never return Go errors: every failure (provider rejection, network issue,
	// timeout) is captured in Error with Success=false.
	SMSResult struct {
		Success   bool
		MessageID string
		Error     string
	}

	// SMSService is any service that can deliver a text message.
	SMSService interface {
		Send(ctx context.Context, to, message string) SMSResult
	}
)

type TransportKind int

const (
	TransportSimulated TransportKind = iota
	TransportReal
)

// TransportConfig is the immutable outcome of the transport resolution performed
// once at startup; Send implementations consume it instead of re-deriving the
// transport choice per call.
type TransportConfig struct {
	Kind       TransportKind
	Sender     string
	AccountSID string
	AuthToken  string
}

// ResolveSMSTransport picks the transport from the provider configuration:
// real provider when full credentials are present, simulated otherwise.
// The sender number is normalized so the self-messaging guard can compare it
// against normalized destinations.
func ResolveSMSTransport(conf *Config) TransportConfig {
	tc := TransportConfig{
		Kind:       TransportSimulated,
		Sender:     NormalizePhoneNumber(conf.SMS.Sender),
		AccountSID: conf.SMS.AccountSID,
		AuthToken:  conf.SMS.AuthToken,
	}
	if conf.SMS.AccountSID != "" && conf.SMS.AuthToken != "" && conf.SMS.Sender != "" {
		tc.Kind = TransportReal
	}
	return tc
}

var domesticPhoneRegex = regexp.MustCompile(`^0\d{9}$`)

// NormalizePhoneNumber converts a raw phone number to E.164 form:
// a domestic 10-digit number with a leading trunk "0" becomes "+33" plus the
// 9 remaining digits; any other number without a leading "+" gets one prepended;
// already-international numbers pass through. The operation is idempotent.
func NormalizePhoneNumber(raw string) string {
	num := strings.TrimSpace(raw)
	if num == "" {
		return num
	}
	if domesticPhoneRegex.MatchString(num) {
		return "+33" + num[1:]
	}
	if !strings.HasPrefix(num, "+") {
		return "+" + num
	}
	return num
}
