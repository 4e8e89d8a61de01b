package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/pkg/errs"
)

// isolate points HOME and the CWD at empty temp dirs so no real config leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://172.17.10.100/eportal/InterFace.do", cfg.PortalURL())
	assert.Equal(t, "教学区免费上网", cfg.Network.Service)
	assert.Equal(t, "已经在线", cfg.Network.OnlineMarker)
	assert.Equal(t, 60*time.Second, cfg.Network.CheckInterval)
	assert.False(t, cfg.Network.AutoLogin)
	assert.False(t, cfg.Credentials().Complete())
	assert.Nil(t, cfg.CustomIdentity())
	assert.Empty(t, cfg.Path())
	assert.Equal(t, v1.DefaultRetryPolicy(), cfg.Policy())
}

func TestLoadINI(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, filepath.Join(dir, "config.ini"), `
[Network]
url = http://10.0.0.1/eportal/InterFace.do
user_id = 20231234567
password = hunter2
auto_login = true
custom_ip = 172.17.20.30
custom_mac = 00:1a:2b:3c:4d:5e
check_interval = 30s

[Debug]
enable_packet_capture = true
`)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, v1.Credentials{UserID: "20231234567", Password: "hunter2", Service: "教学区免费上网"}, cfg.Credentials())
	assert.Equal(t, "http://10.0.0.1/eportal/InterFace.do", cfg.PortalURL())
	assert.True(t, cfg.Network.AutoLogin)
	assert.True(t, cfg.Debug.EnablePacketCapture)
	assert.Equal(t, 30*time.Second, cfg.Network.CheckInterval)
	assert.Equal(t, &v1.DeviceIdentity{IP: "172.17.20.30", MAC: "001A2B3C4D5E"}, cfg.CustomIdentity())
}

func TestLoadDiscoversUpward(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.ini"), "[Network]\nuser_id = upward\n")
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "upward", cfg.Network.UserID)
}

func TestLoadGlobalThenProject(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(Home(), FileName), "[Network]\nuser_id = global\npassword = from-global\n")
	writeFile(t, filepath.Join(dir, FileName), "[Network]\nuser_id = project\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "project", cfg.Network.UserID)
	assert.Equal(t, "from-global", cfg.Network.Password)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, filepath.Join(dir, "eportal.yaml"), "network:\n  user_id: yaml-user\n  password: yaml-pass\n")
	t.Setenv("EPORTAL_NETWORK_PASSWORD", "env-pass")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml-user", cfg.Network.UserID)
	assert.Equal(t, "env-pass", cfg.Network.Password)
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]struct {
		content string
		code    errs.ErrorCode
	}{
		"bad url":        {"[Network]\nurl = ftp://portal/\n", errs.ErrPortalURL},
		"ip without mac": {"[Network]\ncustom_ip = 10.0.0.5\n", errs.ErrIdentity},
		"invalid ip":     {"[Network]\ncustom_ip = 10.0.0.500\ncustom_mac = AABBCCDDEEFF\n", errs.ErrIdentity},
		"invalid mac":    {"[Network]\ncustom_ip = 10.0.0.5\ncustom_mac = AABBCC\n", errs.ErrIdentity},
		"zero interval":  {"[Network]\ncheck_interval = 0s\n", errs.ErrValidation},
		"zero attempts":  {"[Network]\nmax_attempts = 0\n", errs.ErrValidation},
		"zero timeout":   {"[Network]\nprobe_timeout = 0s\n", errs.ErrValidation},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			dir := isolate(t)
			path := writeFile(t, filepath.Join(dir, "custom.ini"), tc.content)

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errs.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "nope.ini"))
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrConfig))
}

func TestRedacted(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, FileName), "[Network]\nuser_id = alice\npassword = hunter2\n")

	cfg, err := Load("")
	require.NoError(t, err)

	got := map[string]string{}
	for _, s := range cfg.Redacted() {
		got[s.Key] = s.Value
	}
	assert.Equal(t, "********", got["network.password"])
	assert.Equal(t, "alice", got["network.user_id"])
	assert.Equal(t, "60s", got["network.check_interval"])
}

func TestIsSensitiveKey(t *testing.T) {
	assert.True(t, IsSensitiveKey("network.password"))
	assert.True(t, IsSensitiveKey("API_TOKEN"))
	assert.False(t, IsSensitiveKey("network.user_id"))
	assert.False(t, IsSensitiveKey("network.online_marker"))
}

func TestWriteTemplateRoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "sub", FileName)

	require.NoError(t, WriteTemplate(path, "20231234567", "p#ss;word", false))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "20231234567", cfg.Network.UserID)
	assert.Equal(t, "p#ss;word", cfg.Network.Password)

	err = WriteTemplate(path, "x", "y", false)
	assert.True(t, errs.IsCode(err, errs.ErrConfig))
	assert.NoError(t, WriteTemplate(path, "x", "y", true))
}

func TestWriteTemplateKeepsSpecialCharacters(t *testing.T) {
	passwords := []string{
		"plain",
		"p#ss;word",
		"p`#x\"y",
		"x;y`z",
		"a\"b;c",
		"`leading",
		"trailing`",
		`"quoted"`,
		"'single'",
		`"""triple`,
		`ends\`,
		" padded ",
	}
	for _, pw := range passwords {
		t.Run(pw, func(t *testing.T) {
			dir := isolate(t)
			path := filepath.Join(dir, FileName)
			require.NoError(t, WriteTemplate(path, "20231234567", pw, false))

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, "20231234567", cfg.Network.UserID)
			assert.Equal(t, pw, cfg.Network.Password)
		})
	}
}

func TestWriteTemplateRefusesLineBreaks(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, FileName)

	err := WriteTemplate(path, "20231234567", "two\nlines", false)
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrValidation))
	assert.Contains(t, err.Error(), "password")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
