package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	safe := t.TempDir()

	// Existing file inside the safe directory.
	inside := filepath.Join(safe, "report.html")
	require.NoError(t, os.WriteFile(inside, []byte("x"), 0o644))
	assert.NoError(t, ValidatePathWithinDirectory(inside, safe))

	// Not-yet-existing file inside the safe directory.
	assert.NoError(t, ValidatePathWithinDirectory(filepath.Join(safe, "new", "report.html"), safe))

	// Escapes via ..
	assert.Error(t, ValidatePathWithinDirectory(filepath.Join(safe, "..", "evil.html"), safe))

	// Entirely elsewhere.
	other := t.TempDir()
	assert.Error(t, ValidatePathWithinDirectory(filepath.Join(other, "report.html"), safe))
}

func TestValidatePathWithinDirectorySymlinkEscape(t *testing.T) {
	safe := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(safe, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	// The link itself lives inside safe but resolves outside it.
	assert.Error(t, ValidatePathWithinDirectory(filepath.Join(link, "report.html"), safe))
}

func TestValidatePathWithinAllowedDirs(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()

	assert.NoError(t, ValidatePathWithinAllowedDirs(filepath.Join(b, "r.html"), []string{a, b}))
	assert.Error(t, ValidatePathWithinAllowedDirs(filepath.Join(t.TempDir(), "r.html"), []string{a, b}))
	assert.Error(t, ValidatePathWithinAllowedDirs("r.html", nil))
}

func TestValidateExportPath(t *testing.T) {
	assert.NoError(t, ValidateExportPath(filepath.Join(os.TempDir(), "brake-report.html")))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.NoError(t, ValidateExportPath(filepath.Join(cwd, "brake-report.html")))

	assert.Error(t, ValidateExportPath("/etc/brake-report.html"))
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"session-42", "session-42"},
		{"track day #3!", "track_day_3"},
		{"../../etc/passwd", "etc_passwd"},
		{"", "unknown"},
		{"///", "unknown"},
		{"a..b", "a..b"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SanitizeFilename(tc.in), "input %q", tc.in)
	}
}
