package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withEnv(t *testing.T, values map[string]string) {
	t.Helper()
	prev := Env
	Env = values
	t.Cleanup(func() { Env = prev })
}

func TestGetEnvPrefersLoadedFile(t *testing.T) {
	withEnv(t, map[string]string{"CASHDUEZY_TEST_KEY": "from-file"})
	t.Setenv("CASHDUEZY_TEST_KEY", "from-os")

	assert.Equal(t, "from-file", GetEnv("CASHDUEZY_TEST_KEY", "def"))
}

func TestGetEnvFallsBackToOSAndDefault(t *testing.T) {
	withEnv(t, map[string]string{})
	t.Setenv("CASHDUEZY_OS_ONLY", "os")

	assert.Equal(t, "os", GetEnv("CASHDUEZY_OS_ONLY", "def"))
	assert.Equal(t, "def", GetEnv("CASHDUEZY_MISSING", "def"))
}

func TestTypedGetters(t *testing.T) {
	withEnv(t, map[string]string{
		"FLAG_ON":    "yes",
		"FLAG_OFF":   "nope",
		"NUM":        "42",
		"NUM_BAD":    "x",
		"TTL":        "10m",
		"TTL_BAD":    "soon",
		"LOCALES":    "de, fr,,es ",
		"APP_ENV":    "dev",
		"EMPTY_LIST": "",
	})

	assert.True(t, GetBool("FLAG_ON", false))
	assert.False(t, GetBool("FLAG_OFF", true))
	assert.True(t, GetBool("FLAG_MISSING", true))

	assert.Equal(t, 42, GetInt("NUM", 1))
	assert.Equal(t, 1, GetInt("NUM_BAD", 1))

	assert.Equal(t, 10*time.Minute, GetDuration("TTL", time.Second))
	assert.Equal(t, time.Second, GetDuration("TTL_BAD", time.Second))

	assert.Equal(t, []string{"de", "fr", "es"}, GetList("LOCALES"))
	assert.Nil(t, GetList("EMPTY_LIST"))
	assert.True(t, IsDev())
}
