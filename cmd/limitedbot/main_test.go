package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/limitedbot/internal/crypto"
)

func TestSealCookieWritesOpenableVault(t *testing.T) {
	r := require.New(t)
	path := filepath.Join(t.TempDir(), "cookie.sealed")

	r.NoError(sealCookie(strings.NewReader("  secret-cookie \n"), path, "pw"))

	raw, err := os.ReadFile(path)
	r.NoError(err)
	cookie, err := crypto.OpenCookie(raw, "pw")
	r.NoError(err)
	r.Equal("secret-cookie", cookie)

	info, err := os.Stat(path)
	r.NoError(err)
	r.Equal(os.FileMode(0o600), info.Mode().Perm())
}

func TestSealCookieRejectsMissingInput(t *testing.T) {
	r := require.New(t)
	dir := t.TempDir()

	r.ErrorContains(sealCookie(strings.NewReader("cookie"), filepath.Join(dir, "a"), ""), "cookie_password")
	r.ErrorContains(sealCookie(strings.NewReader("\n"), filepath.Join(dir, "b"), "pw"), "no cookie")
}
