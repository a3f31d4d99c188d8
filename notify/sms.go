package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioConfig holds the account credentials and the sending number.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMS sends one text per phone number through Twilio.
type SMS struct {
	from string
	body string
	api  messageCreator
}

func NewSMS(cfg TwilioConfig, message string) *SMS {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &SMS{from: cfg.From, body: message, api: client.Api}
}

func (s *SMS) Name() string { return "sms" }

func (s *SMS) Accepts(destination string) bool { return strings.HasPrefix(destination, "+") }

// Send tries every number; one failure does not stop the rest.
func (s *SMS) Send(ctx context.Context, to []string) error {
	var errs []error
	for _, number := range to {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		params := &twilioApi.CreateMessageParams{}
		params.SetTo(number)
		params.SetFrom(s.from)
		params.SetBody(s.body)
		if _, err := s.api.CreateMessage(params); err != nil {
			errs = append(errs, fmt.Errorf("sms %s: %w", number, err))
		}
	}
	return errors.Join(errs...)
}
