package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommissionConfigHolder_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`commission:
  standardCents: 250
  selfCents: 400
  referralCents: 150
  import:
    maxRows: 10
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "commission.yml"), content, 0o600))

	holder, err := NewCommissionConfigHolder(dir)
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, int64(250), cfg.StandardCents)
	assert.Equal(t, int64(400), cfg.SelfCents)
	assert.Equal(t, int64(150), cfg.ReferralCents)
	assert.Equal(t, 10, cfg.Import.MaxRows)
}

func TestNewCommissionConfigHolder_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`commission:
  selfCents: 350
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "commission.yml"), content, 0o600))

	holder, err := NewCommissionConfigHolder(dir)
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, int64(200), cfg.StandardCents)
	assert.Equal(t, int64(350), cfg.SelfCents)
	assert.Equal(t, 5000, cfg.Import.MaxRows)
}

func TestNewCommissionConfigHolder_RejectsNegativeRates(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`commission:
  standardCents: -1
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "commission.yml"), content, 0o600))

	_, err := NewCommissionConfigHolder(dir)
	assert.Error(t, err)
}
