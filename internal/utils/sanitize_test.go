package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	testCases := []struct {
		testName string
		input    string
		limit    int
		expected string
	}{
		{
			testName: "Should trim surrounding whitespace",
			input:    "  hello  ",
			limit:    100,
			expected: "hello",
		},
		{
			testName: "Should strip control characters",
			input:    "left at\x00 the\x1b door",
			limit:    100,
			expected: "left at the door",
		},
		{
			testName: "Should keep newlines",
			input:    "line one\nline two",
			limit:    100,
			expected: "line one\nline two",
		},
		{
			testName: "Should cap length in runes",
			input:    "привет мир",
			limit:    6,
			expected: "привет",
		},
		{
			testName: "Should ignore non-positive limit",
			input:    "hello",
			limit:    0,
			expected: "hello",
		},
		{
			testName: "Should return empty string for control-only input",
			input:    "\x00\x01\x02",
			limit:    10,
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.testName, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeText(tc.input, tc.limit))
		})
	}
}

func TestValidateURL(t *testing.T) {
	assert.True(t, ValidateURL("https://storage.local/photo.jpg"))
	assert.True(t, ValidateURL("http://localhost:8090/uploads/photo.jpg"))
	assert.False(t, ValidateURL("ftp://storage.local/photo.jpg"))
	assert.False(t, ValidateURL("/uploads/photo.jpg"))
	assert.False(t, ValidateURL("javascript:alert(1)"))
	assert.False(t, ValidateURL(""))
}

func TestValidatePrice(t *testing.T) {
	assert.True(t, ValidatePrice(10.5))
	assert.False(t, ValidatePrice(0))
	assert.False(t, ValidatePrice(-5))
}

func TestValidateQuantity(t *testing.T) {
	assert.True(t, ValidateQuantity(1))
	assert.False(t, ValidateQuantity(0))
	assert.False(t, ValidateQuantity(-1))
}
