package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roamtrails/booking-checkout/internal/models"
)

func TestItemTypeForVertical(t *testing.T) {
	tests := []struct {
		vertical string
		want     models.ItemType
		ok       bool
	}{
		{"packages", models.ItemTypePackage, true},
		{"events", models.ItemTypeEvent, true},
		{"attractions", models.ItemTypeAttraction, true},
		{"hotels", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.vertical, func(t *testing.T) {
			got, ok := itemTypeForVertical(tt.vertical)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
