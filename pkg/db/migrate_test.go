package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const migrationsDir = "../../migrations"

func TestMigrationFilesExist(t *testing.T) {
	for _, filename := range []string{
		"000001_create_waitlist_users.up.sql",
		"000001_create_waitlist_users.down.sql",
	} {
		_, err := os.Stat(filepath.Join(migrationsDir, filename))
		assert.NoError(t, err, filename)
	}
}

func TestUpMigrationDeclaresConstraints(t *testing.T) {
	content, err := os.ReadFile(filepath.Join(migrationsDir, "000001_create_waitlist_users.up.sql"))
	require.NoError(t, err)
	sql := string(content)

	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS waitlist_users")
	// repository error mapping depends on these names
	assert.Contains(t, sql, "waitlist_users_email_key")
	assert.Contains(t, sql, "waitlist_users_phone_key")
	assert.Contains(t, sql, "waitlist_users_referral_code_key")
	assert.Contains(t, sql, "CHECK (role IN ('client', 'chef'))")
}

func TestDownMigrationDropsTable(t *testing.T) {
	content, err := os.ReadFile(filepath.Join(migrationsDir, "000001_create_waitlist_users.down.sql"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(content), "DROP TABLE"))
}
