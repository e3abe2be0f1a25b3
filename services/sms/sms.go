// Package smssvc provides the text-message dispatch services used to notify
// parents, with a real provider transport and a simulated one.
package smssvc

import (
	"context"

	"github.com/gestiabsences/backend/core"
)

// gatewayService routes each message to the transport resolved at startup.
// Messages addressed to the sender number itself always go through the
// simulated transport; providers reject self-messaging.
type gatewayService struct {
	tc        core.TransportConfig
	real      core.SMSService
	simulated *SimulatedService
}

var _ core.SMSService = (*gatewayService)(nil)

func NewService(conf *core.Config, logger core.Logger) core.SMSService {
	tc := core.ResolveSMSTransport(conf)
	svc := &gatewayService{
		tc:        tc,
		simulated: NewSimulatedService(logger),
	}
	if tc.Kind == core.TransportReal {
		svc.real = newTwilioService(tc, conf.SMS.Timeout, logger)
	}
	return svc
}

func (svc *gatewayService) Send(ctx context.Context, to, message string) core.SMSResult {
	to = core.NormalizePhoneNumber(to)
	if svc.real == nil || to == svc.tc.Sender {
		return svc.simulated.Send(ctx, to, message)
	}
	return svc.real.Send(ctx, to, message)
}
