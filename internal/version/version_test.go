package version

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// withBuild подменяет значения, которые в релизе приходят из -ldflags.
func withBuild(t *testing.T, v, c, d string) {
	t.Helper()
	prevVersion, prevCommit, prevDate := version, commit, date
	version, commit, date = v, c, d
	t.Cleanup(func() { version, commit, date = prevVersion, prevCommit, prevDate })
}

func TestDefaults(t *testing.T) {
	v, c, d := Info()
	assert.Equal(t, "dev", v)
	assert.Equal(t, "unknown", c)
	assert.Equal(t, "unknown", d)
}

func TestLinkedBuild(t *testing.T) {
	withBuild(t, "v0.4.1", "9f1c2ab", "2026-10-01")

	assert.Equal(t, "v0.4.1", GetVersion())
	assert.Equal(t, "9f1c2ab", GetCommit())
	assert.Equal(t, "2026-10-01", GetDate())
	assert.Equal(t, "version=v0.4.1 commit=9f1c2ab date=2026-10-01", String())
	assert.Equal(t, log.Fields{"version": "v0.4.1", "commit": "9f1c2ab", "date": "2026-10-01"}, Fields())
}
