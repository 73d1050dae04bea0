package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/deploymenttheory/go-bootctl/internal/testutil"
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

const (
	testBlockSize         = testutil.BlockSize
	testPrimaryEntriesLba = testutil.PrimaryEntriesLba
	testBackupEntriesLba  = testutil.BackupEntriesLba
	testBackupHeaderLba   = testutil.BackupHeaderLba
	testDisk              = "/dev/block/sda"
)

var errInjected = errors.New("injected write failure")

type recordedWrite struct {
	device string
	offset int64
	length int
}

// fakeDevice is an in-memory DeviceIO that records every write.
type fakeDevice struct {
	images      map[string][]byte
	links       map[string]string
	suffix      string
	writes      []recordedWrite
	failWriteAt int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		images: make(map[string][]byte),
		links:  make(map[string]string),
		suffix: types.SlotSuffixA,
	}
}

func (f *fakeDevice) ReadBytes(device string, offset int64, length int) ([]byte, error) {
	img, ok := f.images[device]
	if !ok {
		return nil, fmt.Errorf("%s: %w", device, os.ErrNotExist)
	}
	if offset < 0 || offset+int64(length) > int64(len(img)) {
		return nil, io.ErrUnexpectedEOF
	}
	out := make([]byte, length)
	copy(out, img[offset:])
	return out, nil
}

func (f *fakeDevice) WriteBytes(device string, offset int64, data []byte) error {
	f.writes = append(f.writes, recordedWrite{device: device, offset: offset, length: len(data)})
	if f.failWriteAt > 0 && len(f.writes) == f.failWriteAt {
		return errInjected
	}
	img, ok := f.images[device]
	if !ok {
		return fmt.Errorf("%s: %w", device, os.ErrNotExist)
	}
	if offset < 0 || offset+int64(len(data)) > int64(len(img)) {
		return io.ErrShortWrite
	}
	copy(img[offset:], data)
	return nil
}

func (f *fakeDevice) BlockSize(device string) (uint32, error) {
	if _, ok := f.images[device]; !ok {
		return 0, fmt.Errorf("%s: %w", device, os.ErrNotExist)
	}
	return testBlockSize, nil
}

func (f *fakeDevice) ResolveDevice(path string) (string, error) {
	disk, ok := f.links[path]
	if !ok {
		return "", fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	return disk, nil
}

func (f *fakeDevice) Exists(path string) bool {
	_, linked := f.links[path]
	_, imaged := f.images[path]
	return linked || imaged
}

func (f *fakeDevice) BootSlotSuffix() (string, error) {
	return f.suffix, nil
}

func (f *fakeDevice) resetWrites() {
	f.writes = nil
}

func (f *fakeDevice) linkBootPartitions(disk string) {
	f.links[DefaultBootAPath] = disk
	f.links[DefaultBootBPath] = disk
}

func gptDevice(t *testing.T, attrA, attrB uint64) *fakeDevice {
	t.Helper()
	dev := newFakeDevice()
	dev.images[testDisk] = testutil.GptImage(attrA, attrB)
	dev.linkBootPartitions(testDisk)
	return dev
}

func devinfoDevice(major, minor uint16, flagsA, flagsB uint8) *fakeDevice {
	dev := newFakeDevice()
	dev.images[DefaultDevinfoPath] = testutil.DevinfoImage(major, minor, flagsA, flagsB)
	dev.linkBootPartitions(testDisk)
	return dev
}
