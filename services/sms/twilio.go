package smssvc

import (
	"context"
	"fmt"
	"time"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/gestiabsences/backend/core"
)

type twilioService struct {
	client *twilio.RestClient
	sender string
	logger core.Logger
}

var _ core.SMSService = (*twilioService)(nil)

func newTwilioService(tc core.TransportConfig, timeout time.Duration, logger core.Logger) *twilioService {
	httpClient := &twclient.Client{
		Credentials: twclient.NewCredentials(tc.AccountSID, tc.AuthToken),
	}
	httpClient.SetTimeout(timeout)
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: tc.AccountSID,
		Password: tc.AuthToken,
		Client:   httpClient,
	})
	return &twilioService{client: client, sender: tc.Sender, logger: logger}
}

func (svc *twilioService) Send(ctx context.Context, to, message string) core.SMSResult {
	params := new(openapi.CreateMessageParams)
	params.SetTo(to)
	params.SetFrom(svc.sender)
	params.SetBody(message)

	msg, err := svc.client.Api.CreateMessage(params)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("envoi SMS vers %s: %v", to, err))
		return core.SMSResult{Error: err.Error()}
	}

	res := core.SMSResult{Success: true}
	if msg.Sid != nil {
		res.MessageID = *msg.Sid
	}
	return res
}
