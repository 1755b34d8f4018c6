package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStr(t *testing.T) {
	t.Setenv("ENV_TEST_STR", "")
	assert.Equal(t, "fallback", Str("ENV_TEST_STR", "fallback"))

	t.Setenv("ENV_TEST_STR", "value")
	assert.Equal(t, "value", Str("ENV_TEST_STR", "fallback"))
}

func TestInt(t *testing.T) {
	t.Setenv("ENV_TEST_INT", "42")
	assert.Equal(t, 42, Int("ENV_TEST_INT", 1))

	t.Setenv("ENV_TEST_INT", "nope")
	assert.Equal(t, 1, Int("ENV_TEST_INT", 1))
}

func TestBool(t *testing.T) {
	t.Setenv("ENV_TEST_BOOL", "true")
	assert.True(t, Bool("ENV_TEST_BOOL", false))

	t.Setenv("ENV_TEST_BOOL", "maybe")
	assert.False(t, Bool("ENV_TEST_BOOL", false))
}

func TestDuration(t *testing.T) {
	t.Setenv("ENV_TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, Duration("ENV_TEST_DUR", time.Second))

	t.Setenv("ENV_TEST_DUR", "soon")
	assert.Equal(t, time.Second, Duration("ENV_TEST_DUR", time.Second))
}

func TestList(t *testing.T) {
	t.Setenv("ENV_TEST_LIST", "a, b,,c ")
	assert.Equal(t, []string{"a", "b", "c"}, List("ENV_TEST_LIST"))

	t.Setenv("ENV_TEST_LIST", "")
	assert.Nil(t, List("ENV_TEST_LIST"))
}
