package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeShutdowner struct {
	calls int
	err   error
}

func (f *fakeShutdowner) Shutdown(ctx context.Context) error {
	f.calls++
	return f.err
}

type fakeIDMapper struct {
	gidsPurged      int
	netgroupsPurged int
}

func (f *fakeIDMapper) PurgeGIDs()      { f.gidsPurged++ }
func (f *fakeIDMapper) PurgeNetgroups() { f.netgroupsPurged++ }

func TestGraceStartAndEndToggleGetGrace(t *testing.T) {
	a := New(&fakeShutdowner{}, nil)

	require.False(t, a.GetGrace())

	a.StartGrace("10.0.0.5")
	require.True(t, a.GetGrace())

	a.EndGrace()
	require.False(t, a.GetGrace())
}

func TestShutdownRunsExactlyOnce(t *testing.T) {
	fake := &fakeShutdowner{}
	a := New(fake, nil)

	require.NoError(t, a.Shutdown(context.Background()))
	require.NoError(t, a.Shutdown(context.Background()))
	require.Equal(t, 1, fake.calls)
}

func TestPurgeOperationsDelegateToIDMapper(t *testing.T) {
	mapper := &fakeIDMapper{}
	a := New(&fakeShutdowner{}, mapper)

	a.PurgeGIDs()
	a.PurgeNetgroups()

	require.Equal(t, 1, mapper.gidsPurged)
	require.Equal(t, 1, mapper.netgroupsPurged)
}

func TestPurgeOperationsAreNoOpsWithoutIDMapper(t *testing.T) {
	a := New(&fakeShutdowner{}, nil)
	require.NotPanics(t, func() {
		a.PurgeGIDs()
		a.PurgeNetgroups()
	})
}
