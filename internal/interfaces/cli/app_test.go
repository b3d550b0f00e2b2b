package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meal-scheduler/internal/domain/user"
)

func TestOpenBackend_SQLite(t *testing.T) {
	ctx := context.Background()
	b, err := openBackend(ctx, "sqlite::memory:")
	require.NoError(t, err)
	defer b.close()

	require.NoError(t, b.users.Create(ctx, user.User{ID: "u1", Email: "a@example.com", Active: true, CreatedAt: time.Now().UTC()}))

	u, err := findUser(ctx, b.users, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	u, err = findUser(ctx, b.users, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)

	_, err = findUser(ctx, b.users, "nobody@example.com")
	assert.EqualError(t, err, `no user "nobody@example.com"`)

	_, err = findUser(ctx, b.users, "  ")
	assert.Error(t, err)
}

func TestOpenBackend_UnsupportedScheme(t *testing.T) {
	_, err := openBackend(context.Background(), "mysql://localhost/meals")
	assert.ErrorContains(t, err, "unsupported DATABASE_URL")
}

func TestRoot_RejectsUnknownFormat(t *testing.T) {
	cmd := NewRoot()
	cmd.SetArgs([]string{"--format", "xml", "version"})
	cmd.SetOut(&bytes.Buffer{})
	err := cmd.Execute()
	assert.ErrorContains(t, err, `invalid format "xml"`)
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRoot()
	cmd.SetArgs([]string{"version"})
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "mealsched dev (commit=none, built=unknown)\n", out.String())
}

func TestKeys_PrintsThreeExports(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRoot()
	cmd.SetArgs([]string{"keys"})
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	for _, name := range []string{"COOKIE_HASH_KEY=", "COOKIE_BLOCK_KEY=", "CRED_ENC_KEY="} {
		assert.Contains(t, out.String(), "export "+name)
	}
}

func TestUserCommands_AgainstSQLiteFile(t *testing.T) {
	db := t.TempDir() + "/cli.db"
	t.Setenv("DATABASE_URL", "sqlite:"+db)
	t.Setenv("CONFIG_FILE", "")

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := NewRoot()
		cmd.SetArgs(args)
		cmd.SetOut(&out)
		err := cmd.Execute()
		return out.String(), err
	}

	b, err := openBackend(context.Background(), "sqlite:"+db)
	require.NoError(t, err)
	require.NoError(t, b.users.Create(context.Background(), user.User{ID: "u1", Email: "a@example.com", Active: true, CreatedAt: time.Now().UTC()}))
	b.close()

	out, err := run("user", "disable", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "disabled user a@example.com\n", out)

	out, err = run("--format", "json", "user", "list")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"u1","email":"a@example.com","active":false,"has_own_password":false}]`, out)

	out, err = run("operator", "add", "--username", "admin", "--password", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "created operator: admin\n", out)

	out, err = run("user", "remove", "u1")
	require.NoError(t, err)
	assert.Equal(t, "removed user a@example.com\n", out)

	_, err = run("user", "enable", "u1")
	assert.ErrorContains(t, err, `no user "u1"`)
}
