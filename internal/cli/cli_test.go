package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/gazetteer/internal/model"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestValidateYears(t *testing.T) {
	assert.NoError(t, validateYears(model.YearRange{From: 2006, To: 2018}))
	assert.NoError(t, validateYears(model.YearRange{From: 2010, To: 2010}))
	assert.Error(t, validateYears(model.YearRange{From: 2018, To: 2006}))
	assert.Error(t, validateYears(model.YearRange{From: 0, To: 2006}))
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Gazetteer Configuration File")

	var cfg model.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, *model.DefaultConfig(), cfg)

	err = writeDefaultConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	resetViper(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
cache:
  dir: /var/lib/gazette
http:
  timeout: 45s
years:
  from: 2010
  to: 2012
output:
  format: json
skip_documents:
  - 2011/03_Feb15
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	viper.SetConfigFile(path)
	viper.SetEnvPrefix("GAZETTEER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	require.NoError(t, viper.ReadInConfig())

	t.Setenv("GAZETTEER_OUTPUT_DIR", "/tmp/gazette-out")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/gazette", cfg.Cache.Dir)
	assert.Equal(t, "45s", cfg.HTTP.Timeout.String())
	assert.Equal(t, model.YearRange{From: 2010, To: 2012}, cfg.Years)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "/tmp/gazette-out", cfg.Output.Dir)
	assert.Equal(t, []string{"2011/03_Feb15"}, cfg.SkipDocuments)
	assert.Equal(t, model.DefaultConfig().Source, cfg.Source, "unset sections keep their defaults")
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestSetupLogging(t *testing.T) {
	resetViper(t)

	assert.NoError(t, setupLogging("console", false))
	assert.NoError(t, setupLogging("json", true))
	assert.Error(t, setupLogging("xml", false))
}
