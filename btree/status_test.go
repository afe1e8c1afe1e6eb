package btree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cellkv/cellkv/common"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want Status
	}{
		{nil, StatusOK},
		{common.ErrKeyNotFound, StatusNotFound},
		{ErrAlreadyExists, StatusExists},
		{ErrFull, StatusFull},
	}
	for _, c := range cases {
		require.Equal(t, c.want, StatusOf(c.err))
	}
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "OK", StatusOK.String())
	require.Equal(t, "FULL", StatusFull.String())
	require.Equal(t, "ERROR", Status(99).String())
}
