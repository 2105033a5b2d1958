package screenshot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alxayo/go-mediaserver/internal/pipeline"
)

func TestBuildPolicyDispatchesByMethod(t *testing.T) {
	cases := []struct {
		name   string
		params Params
	}{
		{"interval", Params{Method: MethodInterval, Interval: 1}},
		{"percentage", Params{Method: MethodPercentage, Percentage: 25, Duration: 10}},
		{"immediate", Params{Method: MethodImmediate}},
		{"specific_time", Params{Method: MethodSpecificTime, AtSeconds: 3}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, err := BuildPolicy(c.params)
			require.NoError(t, err)
			require.NotNil(t, p)
		})
	}
}

func TestBuildPolicyRejectsUnknownMethod(t *testing.T) {
	_, err := BuildPolicy(Params{Method: "not-a-method"})
	require.Error(t, err)
}

func TestNewTaskSurfacesPolicyValidationErrors(t *testing.T) {
	_, err := NewTask(Params{Method: MethodInterval, Interval: -1}, pipeline.DefaultConfig())
	require.Error(t, err)
}
