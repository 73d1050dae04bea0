package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-bootctl/internal/services"
	"github.com/deploymenttheory/go-bootctl/internal/testutil"
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

const (
	testImage   = "/images/disk.img"
	testDevinfo = "/images/devinfo.img"
)

func memDevice(t *testing.T, config *Config) (afero.Fs, *BlockDeviceIO) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testImage, testutil.GptImage(types.AbAttrActive, 0), 0o644))
	if config == nil {
		config = &Config{}
	}
	return fs, NewBlockDeviceIO(fs, config, nil)
}

func TestReadWriteBytes(t *testing.T) {
	fs, dev := memDevice(t, nil)

	data, err := dev.ReadBytes(testImage, testutil.BlockSize, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte("EFI PART"), data)

	require.NoError(t, dev.WriteBytes(testImage, 10, []byte{1, 2, 3}))

	raw, err := afero.ReadFile(fs, testImage)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, raw[10:13])
	assert.Len(t, raw, testutil.BlockSize*testutil.DiskBlocks, "writes never truncate")
}

func TestReadWriteBounds(t *testing.T) {
	fs, dev := memDevice(t, nil)
	size := int64(testutil.BlockSize * testutil.DiskBlocks)

	_, err := dev.ReadBytes(testImage, size-4, 8)
	assert.ErrorIs(t, err, ErrShortRead)

	err = dev.WriteBytes(testImage, size-4, make([]byte, 8))
	assert.ErrorIs(t, err, ErrShortWrite)

	info, err := fs.Stat(testImage)
	require.NoError(t, err)
	assert.Equal(t, size, info.Size(), "writes never extend")

	_, err = dev.ReadBytes("/images/missing.img", 0, 1)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	err = dev.WriteBytes("/images/missing.img", 0, []byte{0})
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestReadPastEndIsShortRead(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testDevinfo, make([]byte, 128), 0o644))
	dev := NewBlockDeviceIO(fs, &Config{}, nil)

	tests := []struct {
		name   string
		offset int64
		length int
	}{
		{"straddles the end", 100, 92},
		{"starts at the end", 128, 92},
		{"starts past the end", 512, 92},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := dev.ReadBytes(testDevinfo, tc.offset, tc.length)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrShortRead)
		})
	}
}

func TestBlockSize(t *testing.T) {
	_, dev := memDevice(t, nil)
	size, err := dev.BlockSize(testImage)
	require.NoError(t, err)
	assert.Equal(t, uint32(512), size)

	_, dev = memDevice(t, &Config{DefaultBlockSize: 4096})
	size, err = dev.BlockSize(testImage)
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), size)

	_, err = dev.BlockSize("/images/missing.img")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestAliases(t *testing.T) {
	_, dev := memDevice(t, &Config{
		DeviceAliases: map[string]string{
			"/dev/block/by-name/boot_a": testImage,
			"/dev/block/by-name/boot_b": testImage,
		},
	})

	assert.True(t, dev.Exists("/dev/block/by-name/boot_a"))
	assert.False(t, dev.Exists("/dev/block/by-name/devinfo"))

	diskA, err := dev.ResolveDevice("/dev/block/by-name/boot_a")
	require.NoError(t, err)
	diskB, err := dev.ResolveDevice("/dev/block/by-name/boot_b")
	require.NoError(t, err)
	assert.Equal(t, testImage, diskA)
	assert.Equal(t, diskA, diskB)

	data, err := dev.ReadBytes("/dev/block/by-name/boot_a", testutil.BlockSize, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte("EFI PART"), data)

	_, err = dev.ResolveDevice("/dev/block/by-name/devinfo")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestResolveDeviceFollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"ufs partition", "/dev/block/sda12", "/dev/block/sda"},
		{"emmc partition", "/dev/block/mmcblk0p31", "/dev/block/mmcblk0"},
		{"nvme partition", "/dev/block/nvme0n1p4", "/dev/block/nvme0n1"},
		{"image file", filepath.Join(dir, "disk.img"), filepath.Join(dir, "disk.img")},
	}

	dev := NewBlockDeviceIO(afero.NewOsFs(), nil, nil)
	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			link := filepath.Join(dir, "link"+string(rune('a'+i)))
			require.NoError(t, os.Symlink(tc.target, link))

			got, err := dev.ResolveDevice(link)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBootSlotSuffix(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		config  Config
		want    string
		wantErr error
	}{
		{
			name:   "configured override",
			files:  map[string]string{"/proc/cmdline": "androidboot.slot_suffix=_a"},
			config: Config{SlotSuffix: "_b"},
			want:   "_b",
		},
		{
			name:  "bootconfig",
			files: map[string]string{"/proc/bootconfig": "androidboot.hardware = \"oriole\"\nandroidboot.slot_suffix = \"_b\"\n"},
			want:  "_b",
		},
		{
			name:  "kernel command line",
			files: map[string]string{"/proc/cmdline": "console=ttyMSM0 androidboot.slot_suffix=_a quiet"},
			want:  "_a",
		},
		{
			name:    "not reported",
			files:   map[string]string{"/proc/cmdline": "console=ttyMSM0"},
			wantErr: ErrSlotSuffixUnknown,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			for path, content := range tc.files {
				require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o444))
			}
			cfg := tc.config
			dev := NewBlockDeviceIO(fs, &cfg, nil)

			got, err := dev.BootSlotSuffix()
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBootControlOverImages(t *testing.T) {
	fs, _ := memDevice(t, nil)
	require.NoError(t, afero.WriteFile(fs, testDevinfo, testutil.DevinfoImage(3, 1, 0, 0), 0o644))

	config := &Config{
		SlotSuffix: "_a",
		DeviceAliases: map[string]string{
			services.DefaultDevinfoPath: testDevinfo,
			services.DefaultBootAPath:   testImage,
			services.DefaultBootBPath:   testImage,
		},
	}
	dev := NewBlockDeviceIO(fs, config, nil)
	bc := services.NewBootControl(dev, services.BootControlConfig{})

	require.NoError(t, bc.Refresh())
	assert.Equal(t, types.AuthorityGpt, bc.Authority(), "devinfo 3.1 is down-level")

	require.NoError(t, bc.SetActiveBootSlot(1))
	active, err := bc.ActiveBootSlot()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), active)

	store := services.NewGptStore(dev, testImage, nil)
	require.NoError(t, store.Load())
	report, err := store.CrcReport()
	require.NoError(t, err)
	assert.True(t, report.Consistent())

	devinfoBytes, err := afero.ReadFile(fs, testDevinfo)
	require.NoError(t, err)
	assert.Equal(t, testutil.DevinfoImage(3, 1, 0, 0), devinfoBytes, "devinfo is untouched in gpt mode")
}
