package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
database:
  driver: memory
jwt:
  secret: from-file
cache:
  card_ttl: 30s
`)
	t.Setenv("SWIPE_JWT_SECRET", "from-env")
	t.Setenv("SWIPE_IDENTITY_CLIENT_ID", "client-1")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "client-1", cfg.Identity.ClientID)
	assert.Equal(t, 30*time.Second, cfg.Cache.CardTTL)
	assert.Equal(t, "https://oauth2.googleapis.com/tokeninfo", cfg.Identity.TokenInfoURL)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("SWIPE_JWT_SECRET", "secret")
	t.Setenv("SWIPE_SERVER_PORT", "7070")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "database:\n  driver: memory\n"))
	assert.ErrorContains(t, err, "jwt.secret")

	_, err = Load(writeConfig(t, "jwt:\n  secret: s\ndatabase:\n  driver: sqlite\n"))
	assert.ErrorContains(t, err, "database.driver")

	_, err = Load(writeConfig(t, "server: [not, a, map]\n"))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestDerivedValues(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "swipe", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=swipe sslmode=disable", db.DSN())

	aws := AWSConfig{Region: "eu-west-1", S3Bucket: "images"}
	assert.Equal(t, "https://images.s3.eu-west-1.amazonaws.com", aws.ImageBaseURL())
	aws.PublicURL = "https://cdn.example.com"
	assert.Equal(t, "https://cdn.example.com", aws.ImageBaseURL())
}
