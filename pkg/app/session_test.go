package app

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-bootctl/internal/device"
	"github.com/deploymenttheory/go-bootctl/internal/services"
	"github.com/deploymenttheory/go-bootctl/internal/testutil"
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

// fakeController is a BootController whose Refresh can be blocked and made to fail.
type fakeController struct {
	refreshCalls  atomic.Int32
	activateCalls atomic.Int32
	refreshErr    error
	gate          chan struct{}
	entered       chan struct{}
	state         types.SlotState
}

func (f *fakeController) Refresh() error {
	f.refreshCalls.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.refreshErr
}

func (f *fakeController) Authority() types.AuthorityKind { return types.AuthorityGpt }
func (f *fakeController) NumberSlots() uint32            { return 2 }
func (f *fakeController) CurrentSlot() (uint32, error)   { return 0, nil }
func (f *fakeController) MarkBootSuccessful() error      { return nil }

func (f *fakeController) SlotState(slot uint32) (types.SlotState, error) {
	if slot == 0 {
		return f.state, nil
	}
	return types.SlotState{}, nil
}

func (f *fakeController) SetActiveBootSlot(slot uint32) error {
	f.activateCalls.Add(1)
	return nil
}

func imageSession(t *testing.T, devinfoImage []byte) (afero.Fs, *Session) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/images/disk.img", testutil.GptImage(types.AbAttrActive|types.AbAttrSuccessful, 0), 0o644))

	aliases := map[string]string{
		services.DefaultBootAPath: "/images/disk.img",
		services.DefaultBootBPath: "/images/disk.img",
	}
	if devinfoImage != nil {
		require.NoError(t, afero.WriteFile(fs, "/images/devinfo.img", devinfoImage, 0o644))
		aliases[services.DefaultDevinfoPath] = "/images/devinfo.img"
	}

	dev := device.NewBlockDeviceIO(fs, &device.Config{SlotSuffix: "_a", DeviceAliases: aliases}, nil)
	return fs, NewSession(services.NewBootControl(dev, services.BootControlConfig{}), nil)
}

func TestSessionRefreshAndActivate(t *testing.T) {
	_, session := imageSession(t, nil)

	require.NoError(t, session.Refresh())
	snap := session.Snapshot()
	assert.Equal(t, "gpt", snap.Authority)
	assert.Equal(t, uint32(2), snap.NumberSlots)
	assert.True(t, snap.Slots[0].Active)
	assert.False(t, snap.Busy)
	assert.Empty(t, snap.LastError)

	require.NoError(t, session.Activate(1))
	snap = session.Snapshot()
	assert.False(t, snap.Slots[0].Active)
	assert.True(t, snap.Slots[1].Active)

	slot, err := session.CurrentSlot()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), slot)
}

func TestSessionDevinfoReadOnlyFlag(t *testing.T) {
	_, session := imageSession(t, testutil.DevinfoImage(3, 3, types.DevInfoFlagActive, 0))
	require.NoError(t, session.Refresh())
	assert.Equal(t, "devinfo", session.Snapshot().Authority)

	err := session.MarkBootSuccessful()
	var ce *CommonError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeInvalidInput, ce.Code)
	assert.ErrorIs(t, err, services.ErrReadOnlyFlag)
}

func TestSessionRequiresRefresh(t *testing.T) {
	control := &fakeController{}
	session := NewSession(control, nil)

	err := session.Activate(1)
	var ce *CommonError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeSessionFailed, ce.Code)
	assert.Zero(t, control.activateCalls.Load())

	require.NoError(t, session.Refresh())
	require.NoError(t, session.Activate(1))
	assert.Equal(t, int32(1), control.activateCalls.Load())
}

func TestSessionRecordsLastError(t *testing.T) {
	control := &fakeController{refreshErr: services.ErrUnrecoverableState}
	session := NewSession(control, nil)

	err := session.Refresh()
	var ce *CommonError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeUnrecoverableState, ce.Code)
	assert.False(t, session.Busy(), "busy is released on failure")
	assert.False(t, session.Ready())
	assert.Equal(t, err, session.LastError())
	assert.NotEmpty(t, session.Snapshot().LastError)

	err = session.Activate(0)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeSessionFailed, ce.Code)
	assert.ErrorIs(t, err, services.ErrUnrecoverableState)
	assert.Zero(t, control.activateCalls.Load())

	control.refreshErr = nil
	require.NoError(t, session.Refresh())
	assert.Nil(t, session.LastError())
	assert.True(t, session.Ready())
}

func TestSessionBusyAndCoalescedRefresh(t *testing.T) {
	control := &fakeController{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 8),
	}
	session := NewSession(control, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- session.Refresh()
	}()

	<-control.entered
	assert.True(t, session.Busy())

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- session.Refresh()
		}()
	}
	time.Sleep(50 * time.Millisecond)

	close(control.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), control.refreshCalls.Load())
	assert.False(t, session.Busy())
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"unrecoverable", services.ErrUnrecoverableState, ErrCodeUnrecoverableState},
		{"invalid slot", services.ErrInvalidSlot, ErrCodeInvalidInput},
		{"missing device", device.ErrDeviceNotFound, ErrCodeDeviceAccess},
		{"short write", device.ErrShortWrite, ErrCodeDeviceAccess},
		{"other", errors.New("boom"), ErrCodeSessionFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := WrapError("operation failed", tc.err)
			var ce *CommonError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.code, ce.Code)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	assert.Nil(t, WrapError("nothing", nil))

	existing := NewError(ErrCodeInvalidInput, "bad", nil)
	assert.Same(t, existing, WrapError("outer", existing))
}

func TestParseSlot(t *testing.T) {
	for _, s := range []string{"0", "a", "A", "_a", " a "} {
		slot, err := ParseSlot(s)
		require.NoError(t, err, s)
		assert.Equal(t, uint32(0), slot, s)
	}
	for _, s := range []string{"1", "b", "_b"} {
		slot, err := ParseSlot(s)
		require.NoError(t, err, s)
		assert.Equal(t, uint32(1), slot, s)
	}
	for _, s := range []string{"", "2", "c", "_c"} {
		_, err := ParseSlot(s)
		assert.ErrorIs(t, err, services.ErrInvalidSlot, s)
	}
}
