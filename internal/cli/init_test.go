package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incassi/internal/config"
	"incassi/internal/core"
	applog "incassi/internal/log"
	"incassi/internal/services"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", t.TempDir()+"/incassi.db")
	t.Setenv("REFERENCE_MONTH", "2026-02")
	t.Setenv("AMQP_URL", "")
	cfg, err := LoadAndValidateConfig()
	require.NoError(t, err)
	return cfg
}

func TestBootstrapWithoutAMQP(t *testing.T) {
	ctx := context.Background()
	logger := applog.NewText(&bytes.Buffer{}, "debug", applog.ComponentApp)
	now := func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

	app, err := Bootstrap(ctx, testConfig(t), logger, BootstrapOptions{UseAMQP: true, Now: now})
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.AMQP)
	assert.Equal(t, core.NewYearMonth(2026, 2), app.Ledger.Reference())

	clients, err := app.Ledger.ListClients(ctx, services.ViewQuery{})
	require.NoError(t, err)
	assert.Len(t, clients, 7)

	_, err = app.Ledger.ToggleMonth(ctx, "1", 2, 2026)
	require.NoError(t, err, "toggle must not trip over a nil publisher")

	_, err = app.Reconciler.Enqueue(ctx, "", "extrato")
	assert.ErrorIs(t, err, services.ErrAsyncUnavailable)

	require.NoError(t, app.Close())
	require.NoError(t, app.Close(), "close is idempotent")
}

func TestBootstrapRequireAMQP(t *testing.T) {
	logger := applog.NewText(&bytes.Buffer{}, "info", applog.ComponentApp)
	_, err := Bootstrap(context.Background(), testConfig(t), logger, BootstrapOptions{UseAMQP: true, RequireAMQP: true})
	assert.ErrorContains(t, err, "AMQP_URL")
}

func TestLoadAndValidateConfigRejectsBadBackend(t *testing.T) {
	t.Setenv("DATA_BACKEND", "postgres")
	_, err := LoadAndValidateConfig()
	assert.Error(t, err)
}

func TestSheetSourceNeedsSpreadsheet(t *testing.T) {
	app := &App{Config: &config.Config{}}
	_, err := app.SheetSource(context.Background(), "Banca!A:C")
	assert.ErrorContains(t, err, "GOOGLE_SPREADSHEET_ID")
}
