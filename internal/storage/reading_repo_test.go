package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"未指定", 0, DefaultListLimit},
		{"负数", -5, DefaultListLimit},
		{"正常", 20, 20},
		{"上限", MaxListLimit, MaxListLimit},
		{"超出上限", MaxListLimit + 1, MaxListLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLimit(tt.limit))
		})
	}
}
