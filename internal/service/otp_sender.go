package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mcourse/internal/config"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

type Destination struct {
	Channel string
	Address string
}

// OTPSender delivers a challenge code out of band. A nil error means the gateway accepted it.
type OTPSender interface {
	Send(ctx context.Context, to Destination, code string) error
}

type logSender struct{}

// NewLogSender only records that a code was issued; pair it with the debug echo in development.
func NewLogSender() OTPSender {
	return logSender{}
}

func (logSender) Send(ctx context.Context, to Destination, code string) error {
	logutil.GetLogger(ctx).Info("otp issued",
		zap.String("channel", to.Channel),
		zap.String("to", maskAddress(to.Address)),
		zap.Int("digits", len(code)),
	)
	return nil
}

type smtpSender struct {
	cfg config.MailConfig
}

func NewSMTPSender(cfg config.MailConfig) OTPSender {
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(_ context.Context, to Destination, code string) error {
	from := strings.TrimSpace(s.cfg.From)
	if s.cfg.Host == "" || s.cfg.Port == 0 || from == "" {
		return fmt.Errorf("smtp sender not configured")
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	msg := []byte("From: " + from + "\r\n" +
		"To: " + to.Address + "\r\n" +
		"Subject: Your login code\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" + otpMessage(code))
	return smtp.SendMail(addr, auth, from, []string{to.Address}, msg)
}

type smsWebhookSender struct {
	cfg    config.SMSConfig
	client *http.Client
}

type smsWebhookRequest struct {
	To      string `json:"to"`
	Sender  string `json:"sender,omitempty"`
	Message string `json:"message"`
}

func NewSMSWebhookSender(cfg config.SMSConfig, client *http.Client) OTPSender {
	if client == nil {
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &smsWebhookSender{cfg: cfg, client: client}
}

func (s *smsWebhookSender) Send(ctx context.Context, to Destination, code string) error {
	if s.cfg.URL == "" {
		return fmt.Errorf("sms webhook not configured")
	}
	body, err := json.Marshal(smsWebhookRequest{To: to.Address, Sender: s.cfg.Sender, Message: otpMessage(code)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms webhook request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms webhook status %d", resp.StatusCode)
	}
	return nil
}

// routingSender picks a sender by destination channel.
type routingSender struct {
	email OTPSender
	sms   OTPSender
}

func (r routingSender) Send(ctx context.Context, to Destination, code string) error {
	switch to.Channel {
	case ChannelEmail:
		return r.email.Send(ctx, to, code)
	case ChannelSMS:
		return r.sms.Send(ctx, to, code)
	default:
		return fmt.Errorf("unsupported otp channel %q", to.Channel)
	}
}

// NewOTPSender builds the sender for otp_delivery.type. "smtp" and "sms_webhook" replace only their own
// channel; "all" enables both. The other channel falls back to the log sender.
func NewOTPSender(cfg config.OTPDeliveryConfig) (OTPSender, error) {
	r := routingSender{email: NewLogSender(), sms: NewLogSender()}
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", "log":
	case "smtp":
		r.email = NewSMTPSender(cfg.Mail)
	case "sms_webhook":
		r.sms = NewSMSWebhookSender(cfg.SMS, nil)
	case "all":
		r.email = NewSMTPSender(cfg.Mail)
		r.sms = NewSMSWebhookSender(cfg.SMS, nil)
	default:
		return nil, fmt.Errorf("unknown otp delivery type %q", cfg.Type)
	}
	return r, nil
}

func otpMessage(code string) string {
	return "Your verification code is " + code + ". Do not share it with anyone."
}

func maskAddress(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}
