package review

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ledgerbot/internal/directory/models"
)

func TestDefaultNotice(t *testing.T) {
	tests := []struct {
		name     string
		previous models.Status
		next     models.Status
		contains string
		send     bool
	}{
		{"pending approved", models.StatusPending, models.StatusApproved, "Tabriklaymiz", true},
		{"pending rejected", models.StatusPending, models.StatusDenied, "rad etildi", true},
		{"approved blocked", models.StatusApproved, models.StatusDenied, "bloklandi", true},
		{"denied re-approved", models.StatusDenied, models.StatusApproved, "yana ruxsat", true},
		{"unchanged", models.StatusApproved, models.StatusApproved, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := DefaultNotice(tt.previous, tt.next)
			assert.Equal(t, tt.send, ok)
			assert.Contains(t, msg.Text, tt.contains)
		})
	}
}
