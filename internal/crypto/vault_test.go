package crypto_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/limitedbot/internal/crypto"
)

const cookie = "_|WARNING:-DO-NOT-SHARE-THIS.--|_ABCDEF0123456789"

func TestSealOpenRoundTrip(t *testing.T) {
	rq := require.New(t)

	vault, err := crypto.SealCookie("  "+cookie+"\n", "hunter2")
	rq.NoError(err)
	rq.NotContains(string(vault), "DO-NOT-SHARE")

	got, err := crypto.OpenCookie(vault, "hunter2")
	rq.NoError(err)
	rq.Equal(cookie, got)

	_, err = crypto.OpenCookie(vault, "hunter3")
	rq.ErrorIs(err, crypto.ErrWrongPassword)
}

func TestSealRejectsEmptyInput(t *testing.T) {
	_, err := crypto.SealCookie(" ", "pw")
	require.Error(t, err)
	_, err = crypto.SealCookie(cookie, "")
	require.Error(t, err)
}

func TestOpenRejectsUnknownVersion(t *testing.T) {
	_, err := crypto.OpenCookie([]byte(`{"version":9,"iterations":1}`), "pw")
	require.ErrorContains(t, err, "unsupported vault version")
}

func TestLoadCookie(t *testing.T) {
	rq := require.New(t)

	got, err := crypto.LoadCookie(crypto.CookieSource{Cookie: cookie, SealedPath: "ignored"})
	rq.NoError(err)
	rq.Equal(cookie, got)

	vault, err := crypto.SealCookie(cookie, "pw")
	rq.NoError(err)
	path := filepath.Join(t.TempDir(), "cookie.sealed")
	rq.NoError(os.WriteFile(path, vault, 0o600))

	got, err = crypto.LoadCookie(crypto.CookieSource{SealedPath: path, Password: "pw"})
	rq.NoError(err)
	rq.Equal(cookie, got)

	_, err = crypto.LoadCookie(crypto.CookieSource{})
	rq.Error(err)
}
