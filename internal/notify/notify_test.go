package notify

import (
	"context"
	"errors"
	"io"
	"log"
	"myfuelportal-backend/internal/components/telemetry"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestEmailMessage(t *testing.T) {
	notifier := NewEmailNotifier(SmtpConfig{
		Server:       "localhost",
		EmailAddress: "tank@example.com",
		To:           []string{"owner@example.com"},
	})
	require.Equal(t, 587, notifier.config.Port)

	raw, err := notifier.message(Message{
		Subject: "Tank below 20%",
		Body:    "The tank is at 18%.",
	}).Bytes()
	require.NoError(t, err)

	text := string(raw)
	require.Contains(t, text, "Subject: Tank below 20%")
	require.Contains(t, text, "My Fuel Portal")
	require.Contains(t, text, "tank@example.com")
	require.Contains(t, text, "owner@example.com")
	require.Contains(t, text, "The tank is at 18%.")
}

func TestConfigured(t *testing.T) {
	require.False(t, SmtpConfig{}.Configured())
	require.False(t, SmtpConfig{Server: "smtp.example.com", EmailAddress: "a@example.com"}.Configured())
	require.True(t, SmtpConfig{
		Server:       "smtp.example.com",
		EmailAddress: "a@example.com",
		To:           []string{"b@example.com"},
	}.Configured())
}

type failingNotifier struct {
	calls int
}

func (f *failingNotifier) Notify(ctx context.Context, msg Message) error {
	f.calls++
	return errors.New("unreachable")
}

func TestMulti(t *testing.T) {
	tel := &telemetry.RecordingAPI{}
	failing := &failingNotifier{}
	multi := Multi{failing, NewTelemetryNotifier(tel)}

	err := multi.Notify(context.Background(), Message{Subject: "hello", Body: "world"})
	require.EqualError(t, err, "unreachable")
	require.Equal(t, 1, failing.calls)

	warnings := tel.Reports("warning")
	require.Len(t, warnings, 1)
	require.Equal(t, report_notify_send, warnings[0].ID)
	require.Equal(t, []any{"hello", "world"}, warnings[0].Params)
}

// TestEmailNotifierSend needs docker, it is skipped when docker is not available.
func TestEmailNotifierSend(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping smtp container in short mode")
	}

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "haravich/fake-smtp-server",
				ExposedPorts: []string{"1025/tcp", "1080/tcp"},
				WaitingFor:   wait.ForLog("smtp://0.0.0.0:1025"),
			},
		},
	)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() {
		err := container.Terminate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	smtpPort, err := container.MappedPort(ctx, "1025")
	require.NoError(t, err)
	webPort, err := container.MappedPort(ctx, "1080")
	require.NoError(t, err)

	notifier := NewEmailNotifier(SmtpConfig{
		Server:       host,
		Port:         smtpPort.Int(),
		EmailAddress: "tank@example.com",
		Password:     "default",
		To:           []string{"owner@example.com"},
	})
	err = notifier.Notify(ctx, Message{
		Subject: "Fuel portal needs attention",
		Body:    "The portal rejected the configured credentials.",
	})
	require.NoError(t, err)

	client := resty.New().SetTimeout(5 * time.Second)
	res, err := client.R().
		SetContext(ctx).
		Get("http://" + host + ":" + webPort.Port() + "/messages/1.plain")
	require.NoError(t, err)
	require.True(t, strings.Contains(res.String(), "rejected the configured credentials"), res.String())
}
