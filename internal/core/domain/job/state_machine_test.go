package job

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestValidStateTransition(t *testing.T) {
	cases := []struct {
		src, dst Status
		ok       bool
	}{
		{Pending, Running, true},
		{Pending, Failed, true},
		{Pending, Completed, false},
		{Pending, Cancelled, false},
		{Running, Completed, true},
		{Running, Failed, true},
		{Running, Cancelled, true},
		{Running, Pending, false},
		{Completed, Running, false},
		{Failed, Completed, false},
		{Cancelled, Failed, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, ValidStateTransition(tc.src, tc.dst), "%s -> %s", tc.src, tc.dst)
	}
}

func TestTerminalStatusesHaveNoExit(t *testing.T) {
	for _, s := range AllStatuses() {
		if !s.IsTerminal() {
			continue
		}
		for _, dst := range AllStatuses() {
			err := ValidateTransition(s, dst)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidTransition))
		}
	}
}

func TestValidateTransitionUnknownStatus(t *testing.T) {
	err := ValidateTransition(Status("bogus"), Running)
	require.True(t, errors.Is(err, ErrInvalidTransition))
}
