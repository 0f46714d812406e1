package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValidCode(t *testing.T) {
	assert.True(t, IsValidCode("SUMMER-2026"))
	assert.True(t, IsValidCode("bogo_50"))
	assert.False(t, IsValidCode(""))
	assert.False(t, IsValidCode("TEN PERCENT"))
	assert.False(t, IsValidCode("code!"))
}

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name    string
		current string
		startAt time.Time
		endAt   *time.Time
		want    string
	}{
		{"draft stays draft", StatusDraft, past, nil, StatusDraft},
		{"running", StatusActive, past, &future, StatusActive},
		{"not started yet", StatusActive, future, nil, StatusScheduled},
		{"past end date", StatusActive, past, &past, StatusExpired},
		{"no end date", StatusActive, past, nil, StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.current, tt.startAt, tt.endAt, now))
		})
	}
}
