package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"", LevelInfo, false},
		{"Warning", LevelWarn, false},
		{"ERROR", LevelError, false},
		{"off", LevelOff, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("content", "test")
	l.SetOutput(&buf)
	l.SetLevel(LevelWarn)

	l.Info("hidden")
	l.Warnf("shown %d", 1)
	l.WithFields(map[string]string{"table": "t1", "column": "c2"}).Error("with fields")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 1")
	assert.Contains(t, out, "column=c2 table=t1")
}

func TestSubscribersReceiveFilteredEntries(t *testing.T) {
	l := New("content", "test")
	l.SetOutput(&bytes.Buffer{})
	l.SetLevel(LevelOff)
	ch := l.Subscribe()

	l.Debug("cell %s substituted", "t.c.1")

	entry := <-ch
	assert.Equal(t, LevelDebug, entry.Level)
	assert.Equal(t, "cell t.c.1 substituted", entry.Message)
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		OrNop(nil).Error("dropped")
	})
	assert.False(t, Nop().Enabled(LevelError))
}
