package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_readEnvDuration(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want time.Duration
	}{
		{"empty keeps default", "", time.Minute},
		{"go duration", "90m", 90 * time.Minute},
		{"seconds", "30", 30 * time.Second},
		{"garbage keeps default", "soon", time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.env)
			got := time.Minute
			readEnvDuration("TEST_DURATION", &got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_readEnvBool(t *testing.T) {
	tests := []struct {
		env   string
		start bool
		want  bool
	}{
		{"yes", false, true},
		{"ON", false, true},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.env)
			got := tt.start
			readEnvBool("TEST_BOOL", &got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_readEnvInt64(t *testing.T) {
	t.Setenv("TEST_INT64", "1073741824")
	var got int64 = 1
	readEnvInt64("TEST_INT64", &got)
	assert.Equal(t, int64(1073741824), got)

	t.Setenv("TEST_INT64", "1GB")
	readEnvInt64("TEST_INT64", &got)
	assert.Equal(t, int64(1073741824), got, "unparsable values are ignored")
}
