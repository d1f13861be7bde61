package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/paycard/internal/config"
	"github.com/congo-pay/paycard/internal/dispatch"
	"github.com/congo-pay/paycard/internal/logging"
	"github.com/congo-pay/paycard/internal/notification"
)

func TestNewDispatcherByMode(t *testing.T) {
	cfg := config.Config{OutputDir: t.TempDir(), DeferredQueue: 4}
	svc := NewService(cfg, nil, notification.NewLoggerNotifier(logging.Discard()), logging.Discard())

	cfg.DispatchMode = config.DispatchSync
	d, err := NewDispatcher(cfg, svc, nil, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &dispatch.Inline{}, d.Dispatcher)
	assert.Nil(t, d.Deferred)

	cfg.DispatchMode = config.DispatchDeferred
	d, err = NewDispatcher(cfg, svc, nil, logging.Discard())
	require.NoError(t, err)
	require.NotNil(t, d.Deferred)
	require.NoError(t, d.Deferred.Close(context.Background()))

	cfg.DispatchMode = config.DispatchQueue
	_, err = NewDispatcher(cfg, svc, nil, logging.Discard())
	assert.Error(t, err)
}

func TestNewNotifierByMode(t *testing.T) {
	cfg := config.Config{DeliveryMode: config.DeliveryLog}
	assert.IsType(t, &notification.LoggerNotifier{}, NewNotifier(cfg, logging.Discard()))

	cfg.DeliveryMode = config.DeliveryWhatsApp
	assert.IsType(t, &notification.WhatsAppNotifier{}, NewNotifier(cfg, logging.Discard()))
}

func TestNewDriverLoadsEmbeddedTemplate(t *testing.T) {
	cfg := config.Config{}
	_, err := NewDriver(cfg, logging.Discard())
	require.NoError(t, err)

	cfg.TemplateDir = t.TempDir()
	_, err = NewDriver(cfg, logging.Discard())
	assert.Error(t, err, "an empty template dir has no card template")
}
