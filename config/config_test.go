package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harberger.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const validEphemeral = `
ListenAddress = ":8545"

[Engine]
Variant = "ephemeral"
FeeBps = 100
Authority = "0x0101010101010101010101010101010101010101"
Collector = "0x0202020202020202020202020202020202020202"
AdapterAddress = "0x0303030303030303030303030303030303030303"
SettlementEngine = "0x0404040404040404040404040404040404040404"

[Engine.Schedule]
ConfirmationOpen = 1000
ConfirmationDeadline = 2000
AuctionDeadline = 3000
FinalDeadline = 4000
`

func TestLoadAndValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, validEphemeral))
	require.NoError(t, err)
	require.Equal(t, ":8545", cfg.ListenAddress)
	require.Equal(t, ":9464", cfg.MetricsAddress)
	require.NoError(t, Validate(cfg, 500))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[Engine]
FeeBps = 50
Authority = "0x0101010101010101010101010101010101010101"
Collector = "0x0202020202020202020202020202020202020202"
AdapterAddress = "0x0303030303030303030303030303030303030303"
SettlementEngine = "0x0404040404040404040404040404040404040404"
`))
	require.NoError(t, err)
	require.Equal(t, VariantStatic, cfg.Engine.Variant)
	require.NoError(t, Validate(cfg, 0))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestValidateRejectsBadFeeBps(t *testing.T) {
	cfg, err := Load(writeConfig(t, validEphemeral))
	require.NoError(t, err)
	for _, bps := range []uint32{0, 10_001} {
		cfg.Engine.FeeBps = bps
		require.Error(t, Validate(cfg, 500))
	}
}

func TestValidateRejectsBadSchedule(t *testing.T) {
	cfg, err := Load(writeConfig(t, validEphemeral))
	require.NoError(t, err)

	cfg.Engine.Schedule.AuctionDeadline = 5_000 // after the final deadline
	require.Error(t, Validate(cfg, 500))

	cfg.Engine.Schedule.AuctionDeadline = 3_000
	// Confirmation window already open.
	require.Error(t, Validate(cfg, 1_500))
}

func TestValidateRejectsBadAddresses(t *testing.T) {
	cfg, err := Load(writeConfig(t, validEphemeral))
	require.NoError(t, err)
	cfg.Engine.Collector = "not-an-address"
	require.Error(t, Validate(cfg, 500))
	cfg.Engine.Collector = "0x0000000000000000000000000000000000000000"
	require.Error(t, Validate(cfg, 500))
}

func TestValidateRejectsUnknownVariant(t *testing.T) {
	cfg, err := Load(writeConfig(t, validEphemeral))
	require.NoError(t, err)
	cfg.Engine.Variant = "perpetual"
	require.Error(t, Validate(cfg, 500))
}
