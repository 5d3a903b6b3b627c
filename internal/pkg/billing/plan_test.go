package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanForStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "active", want: "pro"},
		{in: "trialing", want: "free"},
		{in: "past_due", want: "free"},
		{in: "canceled", want: "free"},
		{in: "incomplete", want: "free"},
		{in: "ACTIVE", want: "free"},
		{in: "", want: "free"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, planForStatus(tt.in), "status %q", tt.in)
	}
}
