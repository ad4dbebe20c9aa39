// Package utils 工具函数单元测试
package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReceiptNo(t *testing.T) {
	now := time.Date(2024, 2, 1, 10, 30, 0, 0, time.UTC)
	no := GenerateReceiptNo("RC", now)

	assert.True(t, strings.HasPrefix(no, "RC20240201103000"))
	assert.Len(t, no, len("RC20240201103000")+6)
}

func TestGenerateRandomNumber(t *testing.T) {
	n := GenerateRandomNumber(8)
	assert.Len(t, n, 8)
	assert.Equal(t, n, DigitsOnly(n))
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "Hall A", CollapseSpaces("  Hall   A \t"))
	assert.Equal(t, "", CollapseSpaces("   "))
}

func TestParseDigits(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"Annual fee 2024", 2024, true},
		{"3", 3, true},
		{"month 12", 12, true},
		{"Frequency not defined", 0, false},
		{"", 0, false},
		{"99999999999999999999999", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDigits(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPointerHelpers(t *testing.T) {
	assert.Equal(t, "x", *StringPtr("x"))
	assert.Equal(t, 3, *IntPtr(3))
	assert.Equal(t, int64(4), *Int64Ptr(4))
	assert.Equal(t, "", SafeString(nil))
	assert.Equal(t, int64(0), SafeInt64(nil))
	assert.Nil(t, NilIfEmpty("  "))
	assert.Equal(t, "Hall", *NilIfEmpty(" Hall "))

	now := time.Now()
	assert.Equal(t, now, *TimePtr(now))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"MONTHLY", "WEEKLY"}, "WEEKLY"))
	assert.False(t, Contains([]string{"MONTHLY"}, "DAILY"))
}

func TestPagination(t *testing.T) {
	p := Pagination{Page: 0, PageSize: 500}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.PageSize)

	p = Pagination{Page: 3, PageSize: 20, Total: 45}
	assert.Equal(t, 40, p.GetOffset())
	assert.Equal(t, 20, p.GetLimit())
	assert.Equal(t, 3, p.GetTotalPages())

	p = Pagination{Page: 1, PageSize: 10}
	assert.Equal(t, 0, p.GetTotalPages())
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	got, err := ParseDate("2024-02-01")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = ParseDate(" 01/02/2024 ")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseDate("2024/02/01")
	assert.Error(t, err)
}
