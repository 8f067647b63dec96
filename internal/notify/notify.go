package notify

import (
	"context"
	"errors"
	"fmt"

	"welfareportal/internal/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

var (
	ErrChannelUnsupported = errors.New("notification channel not supported")
	ErrChannelDisabled    = errors.New("notification channel disabled")
	ErrNoContact          = errors.New("recipient has no contact for channel")
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// ContactDirectory resolves a user to an email address and phone number.
type ContactDirectory interface {
	Contact(ctx context.Context, userID string) (email string, phone string, err error)
}

type Message struct {
	Subject string
	Body    string
}

type Result struct {
	Channel Channel
	Success bool
	Error   error
}

type Config struct {
	FromEmail    string
	EmailEnabled bool
	SMSEnabled   bool
}

type Dispatcher struct {
	config   Config
	logger   logrus.FieldLogger
	contacts ContactDirectory
	ses      SESService
	sns      SNSService
}

func NewDispatcher(config Config, logger logrus.FieldLogger, contacts ContactDirectory, sesClient SESService, snsClient SNSService) *Dispatcher {
	return &Dispatcher{
		config:   config,
		logger:   logger,
		contacts: contacts,
		ses:      sesClient,
		sns:      snsClient,
	}
}

// Send delivers msg to the user on one channel. Failures are reported in the
// Result rather than returned.
func (d *Dispatcher) Send(ctx context.Context, userID string, channel Channel, msg Message) Result {
	err := d.send(ctx, userID, channel, msg)

	outcome := "sent"
	if err != nil {
		outcome = "failed"
		d.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"channel": channel,
		}).Warn("notification not delivered")
	}
	metrics.NotificationsTotal.WithLabelValues(string(channel), outcome).Inc()

	return Result{Channel: channel, Success: err == nil, Error: err}
}

// Broadcast sends msg on every channel concurrently. Results are returned in
// channel order.
func (d *Dispatcher) Broadcast(ctx context.Context, userID string, channels []Channel, msg Message) []Result {
	results := make([]Result, len(channels))

	var g errgroup.Group
	for i, channel := range channels {
		g.Go(func() error {
			results[i] = d.Send(ctx, userID, channel, msg)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (d *Dispatcher) send(ctx context.Context, userID string, channel Channel, msg Message) error {
	switch channel {
	case ChannelEmail:
		if !d.config.EmailEnabled || d.ses == nil {
			return ErrChannelDisabled
		}
	case ChannelSMS:
		if !d.config.SMSEnabled || d.sns == nil {
			return ErrChannelDisabled
		}
	default:
		return fmt.Errorf("%w: %s", ErrChannelUnsupported, channel)
	}

	email, phone, err := d.contacts.Contact(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up contact: %w", err)
	}

	if channel == ChannelEmail {
		if email == "" {
			return ErrNoContact
		}
		return d.sendEmail(ctx, email, msg)
	}

	if phone == "" {
		return ErrNoContact
	}
	return d.sendSMS(ctx, phone, msg)
}

func (d *Dispatcher) sendEmail(ctx context.Context, to string, msg Message) error {
	_, err := d.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(msg.Subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(msg.Body)},
			},
		},
		Source: aws.String(d.config.FromEmail),
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	return nil
}

func (d *Dispatcher) sendSMS(ctx context.Context, to string, msg Message) error {
	_, err := d.sns.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(msg.Body),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
