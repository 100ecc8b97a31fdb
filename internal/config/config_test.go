package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, `
listeners:
  - port: 1080
  - port: 1081
    bind: 127.0.0.1
    allow:
      - 10.0.0.0/8
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Listeners, 2)
	assert.Equal(t, "0.0.0.0", cfg.Listeners[0].Bind)
	assert.Equal(t, "127.0.0.1:1081", cfg.Listeners[1].Addr())
}

func TestLoad_DuplicatePort(t *testing.T) {
	path := writeConfig(t, `
listeners:
  - port: 1080
  - port: 1080
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_NoListeners(t *testing.T) {
	path := writeConfig(t, `listeners: []`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_BadPort(t *testing.T) {
	path := writeConfig(t, `
listeners:
  - port: 70000
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_BadAllowEntry(t *testing.T) {
	path := writeConfig(t, `
listeners:
  - port: 1080
    allow:
      - "not-an-ip"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestNewCIDRAccess_AllowList(t *testing.T) {
	access, err := NewCIDRAccess([]string{"10.0.0.0/8", "192.168.1.5"})
	require.NoError(t, err)

	allowedNet := &fakeAddr{"10.1.2.3:5555"}
	allowedIP := &fakeAddr{"192.168.1.5:1234"}
	denied := &fakeAddr{"8.8.8.8:1234"}

	assert.True(t, access.CheckAccess(allowedNet, "", "x", 1).Allow)
	assert.True(t, access.CheckAccess(allowedIP, "", "x", 1).Allow)
	assert.False(t, access.CheckAccess(denied, "", "x", 1).Allow)
}

func TestNewCIDRAccess_EmptyAllowsAll(t *testing.T) {
	access, err := NewCIDRAccess(nil)
	require.NoError(t, err)
	assert.True(t, access.CheckAccess(&fakeAddr{"1.2.3.4:1"}, "", "x", 1).Allow)
}

type fakeAddr struct{ addr string }

func (f *fakeAddr) Network() string { return "tcp" }
func (f *fakeAddr) String() string  { return f.addr }
