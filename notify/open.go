package notify

import (
	"log/slog"

	"github.com/soocke/weapon-watch/config"
)

// Open builds a Multi from cfg. Channels without credentials are left out;
// the returned close func releases the broker connection, if any.
func Open(cfg *config.Config, logger *slog.Logger) (*Multi, func() error) {
	if logger == nil {
		logger = slog.Default()
	}
	var channels []Channel
	if cfg.SMTPHost != "" {
		channels = append(channels, NewEmail(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			From:     cfg.SMTPFrom,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
		}, cfg.AlertMessage))
	}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		channels = append(channels, NewSMS(TwilioConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioFrom,
		}, cfg.AlertMessage))
	} else {
		logger.Info("sms channel disabled", "reason", "no twilio credentials")
	}

	closer := func() error { return nil }
	var publishers []Publisher
	if cfg.AMQPURL != "" {
		pub, err := DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("amqp publisher disabled", "error", err)
		} else {
			publishers = append(publishers, pub)
			closer = pub.Close
		}
	}
	return NewMulti(cfg.AlertMessage, logger, channels, publishers...), closer
}
