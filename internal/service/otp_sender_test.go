package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mcourse/internal/config"
)

func TestSMSWebhookSender(t *testing.T) {
	var got smsWebhookRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSMSWebhookSender(config.SMSConfig{URL: srv.URL, APIKey: "k", Sender: "MCOURSE"}, srv.Client())
	require.NoError(t, sender.Send(context.Background(), Destination{Channel: ChannelSMS, Address: userPhone}, "4821"))
	require.Equal(t, "Bearer k", auth)
	require.Equal(t, userPhone, got.To)
	require.Equal(t, "MCOURSE", got.Sender)
	require.True(t, strings.Contains(got.Message, "4821"))
}

func TestSMSWebhookSenderFailsOnGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sender := NewSMSWebhookSender(config.SMSConfig{URL: srv.URL}, srv.Client())
	require.Error(t, sender.Send(context.Background(), Destination{Channel: ChannelSMS, Address: userPhone}, "4821"))
	require.Error(t, NewSMSWebhookSender(config.SMSConfig{}, nil).Send(context.Background(), Destination{}, "1"))
}

func TestSMTPSenderRequiresConfig(t *testing.T) {
	err := NewSMTPSender(config.MailConfig{}).Send(context.Background(), Destination{Channel: ChannelEmail, Address: adminEmail}, "1234")
	require.Error(t, err)
}

func TestNewOTPSenderRoutesByChannel(t *testing.T) {
	sender, err := NewOTPSender(config.OTPDeliveryConfig{Type: "log"})
	require.NoError(t, err)
	require.NoError(t, sender.Send(context.Background(), Destination{Channel: ChannelEmail, Address: adminEmail}, "1234"))
	require.NoError(t, sender.Send(context.Background(), Destination{Channel: ChannelSMS, Address: userPhone}, "1234"))
	require.Error(t, sender.Send(context.Background(), Destination{Channel: "fax", Address: "x"}, "1234"))

	sender, err = NewOTPSender(config.OTPDeliveryConfig{Type: "smtp"})
	require.NoError(t, err)
	require.Error(t, sender.Send(context.Background(), Destination{Channel: ChannelEmail, Address: adminEmail}, "1234"))
	require.NoError(t, sender.Send(context.Background(), Destination{Channel: ChannelSMS, Address: userPhone}, "1234"))

	_, err = NewOTPSender(config.OTPDeliveryConfig{Type: "pigeon"})
	require.Error(t, err)
}

func TestMaskAddress(t *testing.T) {
	require.Equal(t, "****", maskAddress("abc"))
	require.Equal(t, "********1111", maskAddress(userPhone))
}
