package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testConfig = `
version: 1
global:
  farm_name: example.farm
  jetstream:
    topic_prefix: Scrubd
directory:
  base_url: http://directory.internal:8072
  access_token: directorysecret
wikis:
  connection_template: "file:/data/wikis/%s.db"
  connections:
    wikilegacy: "postgres://scrub@db0/wikilegacy"
redaction:
  features:
    - wikiforum
    - moderation
  export_directory: /srv/pii
admin_api:
  listen: localhost:8074
  access_token: adminsecret
`

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig([]byte(testConfig))
	assert.NoError(t, err)
	assert.Equal(t, "example.farm", cfg.Global.FarmName)
	assert.Equal(t, "ScrubdRedactionJob", cfg.Global.JetStream.Prefixed("RedactionJob"))

	// Defaults survive partial configuration.
	assert.Equal(t, "csv", cfg.Redaction.ExportFormat)
	assert.Equal(t, "Farm default", cfg.Redaction.SystemActor)

	// Component sections are wired back to global.
	assert.Same(t, &cfg.Global, cfg.Redaction.Global)
	assert.Same(t, &cfg.Global, cfg.AdminAPI.Global)
}

func TestLoadConfigMissingKeys(t *testing.T) {
	_, err := loadConfig([]byte("version: 1\n"))
	assert.Error(t, err)
	var configErrs ConfigErrors
	assert.ErrorAs(t, err, &configErrs)
	assert.Contains(t, configErrs, `missing config key "directory.base_url"`)
	assert.Contains(t, configErrs, `missing config key "admin_api.access_token"`)
}

func TestWikisConnectionString(t *testing.T) {
	cfg, err := loadConfig([]byte(testConfig))
	assert.NoError(t, err)

	cs, err := cfg.Wikis.ConnectionString("wiki3")
	assert.NoError(t, err)
	assert.Equal(t, "file:/data/wikis/wiki3.db", cs)

	cs, err = cfg.Wikis.ConnectionString("wikilegacy")
	assert.NoError(t, err)
	assert.Equal(t, "postgres://scrub@db0/wikilegacy", cs)
}

func TestWikisVerifyTemplatePlaceholder(t *testing.T) {
	wikis := Wikis{ConnectionTemplate: "file:fixed.db"}
	var configErrs ConfigErrors
	wikis.Verify(&configErrs)
	assert.Contains(t, configErrs, "wikis.connection_template must contain %s for the database identifier")
}

func TestFeatureEnabled(t *testing.T) {
	redaction := Redaction{Features: []string{"WikiForum", "comments"}}
	assert.True(t, redaction.FeatureEnabled(""))
	assert.True(t, redaction.FeatureEnabled("wikiforum"))
	assert.True(t, redaction.FeatureEnabled("Comments"))
	assert.False(t, redaction.FeatureEnabled("blogpage"))
}
