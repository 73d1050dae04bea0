package status

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-bootctl/internal/device"
	"github.com/deploymenttheory/go-bootctl/internal/services"
	"github.com/deploymenttheory/go-bootctl/internal/testutil"
	"github.com/deploymenttheory/go-bootctl/internal/types"
	"github.com/deploymenttheory/go-bootctl/pkg/app"
)

func newSession(t *testing.T, config *device.Config) *app.Session {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/images/devinfo.img",
		testutil.DevinfoImage(3, 3, types.DevInfoFlagSuccessful, types.DevInfoFlagActive|types.DevInfoFlagUnbootable), 0o644))

	config.DeviceAliases = map[string]string{
		services.DefaultDevinfoPath: "/images/devinfo.img",
		services.DefaultBootAPath:   "/images/devinfo.img",
		services.DefaultBootBPath:   "/images/devinfo.img",
	}
	dev := device.NewBlockDeviceIO(fs, config, nil)
	return app.NewSession(services.NewBootControl(dev, services.BootControlConfig{}), nil)
}

func TestHandle(t *testing.T) {
	session := newSession(t, &device.Config{SlotSuffix: "_b"})

	resp, err := Handle(app.NewContext(), session)
	require.NoError(t, err)

	assert.Equal(t, "devinfo", resp.Authority)
	assert.Equal(t, uint32(2), resp.NumberSlots)
	assert.Equal(t, "_b", resp.CurrentSlot)
	assert.True(t, resp.CurrentSlotOK)
	assert.Equal(t, "_b", resp.ActiveSlot)
	require.Len(t, resp.Slots, 2)
	assert.Equal(t, SlotInfo{Suffix: "_a", Successful: true, Bootable: true}, resp.Slots[0])
	assert.Equal(t, SlotInfo{Suffix: "_b", Active: true}, resp.Slots[1])
}

func TestHandleUnknownCurrentSlot(t *testing.T) {
	session := newSession(t, &device.Config{ProcRoot: "/nonexistent"})

	resp, err := Handle(app.NewContext(), session)
	require.NoError(t, err)
	assert.False(t, resp.CurrentSlotOK)
	assert.Empty(t, resp.CurrentSlot)
}

func TestFormatOutput(t *testing.T) {
	resp := FromSnapshot(app.Snapshot{
		Authority:   "gpt",
		NumberSlots: 2,
		Slots: [types.SlotCount]types.SlotState{
			{Active: true, Successful: true},
			{Unbootable: true},
		},
	})
	resp.CurrentSlot = "_a"
	resp.CurrentSlotOK = true

	tests := []struct {
		name     string
		format   string
		wantErr  bool
		validate func(*testing.T, string)
	}{
		{
			name:   "table format",
			format: "table",
			validate: func(t *testing.T, output string) {
				assert.Contains(t, output, "Authority: gpt")
				assert.Contains(t, output, "Current slot: _a")
				assert.Contains(t, output, "SLOT")
				assert.Regexp(t, `_a\s+yes\s+yes\s+yes`, output)
				assert.Regexp(t, `_b\s+no\s+no\s+no`, output)
			},
		},
		{
			name:   "json format",
			format: "json",
			validate: func(t *testing.T, output string) {
				var decoded Response
				require.NoError(t, json.Unmarshal([]byte(output), &decoded))
				assert.Equal(t, "gpt", decoded.Authority)
				assert.Equal(t, "_a", decoded.ActiveSlot)
				assert.Len(t, decoded.Slots, 2)
			},
		},
		{
			name:   "yaml format",
			format: "yaml",
			validate: func(t *testing.T, output string) {
				var decoded Response
				require.NoError(t, yaml.Unmarshal([]byte(output), &decoded))
				assert.Equal(t, "_a", decoded.CurrentSlot)
				assert.False(t, decoded.Slots[1].Bootable)
			},
		},
		{
			name:    "unsupported format",
			format:  "xml",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := FormatOutput(&buf, resp, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, buf.String())
		})
	}
}

func TestFormatTableNoSlots(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatOutput(&buf, FromSnapshot(app.Snapshot{Authority: "devinfo"}), "table"))
	assert.Contains(t, buf.String(), "No boot slots found.")
}
