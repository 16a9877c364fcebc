package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthProbes(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	require.NoError(t, st.sdk.GetLiveness(ctx))
	require.NoError(t, st.sdk.GetReadiness(ctx))
}
