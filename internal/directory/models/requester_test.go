package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"pending", StatusPending},
		{"approved", StatusApproved},
		{" Approved ", StatusApproved},
		{"denied", StatusDenied},
		{"rejected", StatusDenied},
		{"blocked", StatusDenied},
		{"garbage", StatusDenied},
		{"", StatusUnregistered},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStatus(tt.raw))
		})
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusUnregistered, StatusPending, true},
		{StatusUnregistered, StatusApproved, true},
		{StatusUnregistered, StatusDenied, false},
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusDenied, true},
		{StatusApproved, StatusDenied, true},
		{StatusDenied, StatusApproved, true},
		{StatusApproved, StatusApproved, true},
		{StatusApproved, StatusPending, false},
		{StatusDenied, StatusPending, false},
		{StatusApproved, StatusUnregistered, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}
