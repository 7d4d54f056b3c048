package pagination

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRequest(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		size     int
		expected Request
	}{
		{"defaults when zero", 0, 0, Request{Page: 0, Size: DefaultSize}},
		{"negative page clamps to zero", -3, 5, Request{Page: 0, Size: 5}},
		{"size capped at max", 2, 1000, Request{Page: 2, Size: MaxSize}},
		{"valid values kept", 4, 25, Request{Page: 4, Size: 25}},
		{"page capped at max", math.MaxInt, 100, Request{Page: MaxPage, Size: MaxSize}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewRequest(tt.page, tt.size))
		})
	}
}

func TestRequestOffset(t *testing.T) {
	assert.Equal(t, 0, NewRequest(0, 10).Offset())
	assert.Equal(t, 30, NewRequest(3, 10).Offset())
	assert.LessOrEqual(t, NewRequest(MaxPage, MaxSize).Offset(), math.MaxInt32)
}

func TestPage(t *testing.T) {
	t.Run("nil content becomes empty slice", func(t *testing.T) {
		p := NewPage[int](nil, NewRequest(0, 10), 0)
		assert.NotNil(t, p.Content)
		assert.Empty(t, p.Content)
		assert.Equal(t, 0, p.TotalPages())
	})

	t.Run("total pages rounds up", func(t *testing.T) {
		p := NewPage([]int{1, 2}, NewRequest(1, 2), 5)
		assert.Equal(t, 3, p.TotalPages())
		assert.Equal(t, 1, p.Number)
		assert.Equal(t, 2, p.Size)
	})

	t.Run("map keeps metadata", func(t *testing.T) {
		p := NewPage([]int{1, 2}, NewRequest(0, 2), 7)
		mapped := Map(p, strconv.Itoa)
		assert.Equal(t, []string{"1", "2"}, mapped.Content)
		assert.Equal(t, int64(7), mapped.TotalElements)
		assert.Equal(t, 2, mapped.Size)
	})
}
