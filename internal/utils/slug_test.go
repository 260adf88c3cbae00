package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Pro", "pro"},
		{"spaces", "Business Plus", "business-plus"},
		{"symbols stripped", "Business+", "business"},
		{"underscores", "free_tier", "free-tier"},
		{"surrounding noise", "  (Enterprise)  ", "enterprise"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Slugify(tc.in))
		})
	}
}
