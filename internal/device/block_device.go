package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-bootctl/internal/interfaces"
)

// wholeDiskPattern matches the whole-disk prefix of a partition device node.
var wholeDiskPattern = regexp.MustCompile(`^/dev/block/(sd[a-z]+|mmcblk\d+|nvme\d+n\d+|vd[a-z]+|loop\d+)`)

// slotSuffixPattern matches the slot suffix in /proc/bootconfig and /proc/cmdline.
var slotSuffixPattern = regexp.MustCompile(`androidboot\.slot_suffix\s*=\s*"?(_[ab])"?`)

// BlockDeviceIO implements DeviceIO over an afero filesystem. Aliases map symbolic paths
// such as /dev/block/by-name/boot_a to backing devices or image files.
type BlockDeviceIO struct {
	fs               afero.Fs
	aliases          map[string]string
	defaultBlockSize uint32
	slotSuffix       string
	procRoot         string
	logger           logrus.FieldLogger
}

// Compile-time check to ensure BlockDeviceIO implements DeviceIO
var _ interfaces.DeviceIO = (*BlockDeviceIO)(nil)

// NewBlockDeviceIO creates device I/O over fs. A nil config uses the defaults.
func NewBlockDeviceIO(fs afero.Fs, config *Config, logger logrus.FieldLogger) *BlockDeviceIO {
	if config == nil {
		config = &Config{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	d := &BlockDeviceIO{
		fs:               fs,
		aliases:          make(map[string]string, len(config.DeviceAliases)),
		defaultBlockSize: config.DefaultBlockSize,
		slotSuffix:       config.SlotSuffix,
		procRoot:         config.ProcRoot,
		logger:           logger.WithField("component", "device"),
	}
	for from, to := range config.DeviceAliases {
		d.aliases[from] = to
	}
	if d.defaultBlockSize == 0 {
		d.defaultBlockSize = 512
	}
	if d.procRoot == "" {
		d.procRoot = "/proc"
	}
	return d
}

func (d *BlockDeviceIO) alias(path string) string {
	if to, ok := d.aliases[path]; ok {
		return to
	}
	return path
}

// ReadBytes reads exactly length bytes at offset.
func (d *BlockDeviceIO) ReadBytes(device string, offset int64, length int) ([]byte, error) {
	path := d.alias(device)

	f, err := d.fs.Open(path)
	if err != nil {
		return nil, d.openError(device, err)
	}
	defer f.Close()

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if n < length {
		if err == nil {
			return nil, fmt.Errorf("reading %d bytes at offset %d of %s (got %d): %w", length, offset, device, n, ErrShortRead)
		}
		return nil, fmt.Errorf("reading %d bytes at offset %d of %s (got %d): %w: %w", length, offset, device, n, ErrShortRead, err)
	}

	d.logger.WithFields(logrus.Fields{"device": device, "offset": offset}).Tracef("read %d bytes", length)
	return buf, nil
}

// WriteBytes writes data at offset. Regular files are never extended; writes past the end
// fail with ErrShortWrite before anything is written.
func (d *BlockDeviceIO) WriteBytes(device string, offset int64, data []byte) error {
	path := d.alias(device)

	f, err := d.fs.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return d.openError(device, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", device, err)
	}
	if info.Mode().IsRegular() && offset+int64(len(data)) > info.Size() {
		return fmt.Errorf("writing %d bytes at offset %d of %s (size %d): %w", len(data), offset, device, info.Size(), ErrShortWrite)
	}

	n, err := f.WriteAt(data, offset)
	if err != nil {
		return fmt.Errorf("failed to write %s at offset %d: %w", device, offset, err)
	}
	if n != len(data) {
		return fmt.Errorf("wrote %d of %d bytes at offset %d of %s: %w", n, len(data), offset, device, ErrShortWrite)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", device, err)
	}

	d.logger.WithFields(logrus.Fields{"device": device, "offset": offset}).Debugf("wrote %d bytes", len(data))
	return nil
}

// BlockSize returns the logical block size. Block device nodes on the host filesystem are
// queried with an ioctl; everything else uses the configured default.
func (d *BlockDeviceIO) BlockSize(device string) (uint32, error) {
	path := d.alias(device)

	info, err := d.fs.Stat(path)
	if err != nil {
		return 0, d.openError(device, err)
	}

	if _, isOs := d.fs.(*afero.OsFs); isOs && info.Mode()&os.ModeDevice != 0 {
		size, err := deviceBlockSize(path)
		if err != nil {
			return 0, fmt.Errorf("failed to get block size of %s: %w", device, err)
		}
		return size, nil
	}

	return d.defaultBlockSize, nil
}

// ResolveDevice maps a partition path to the whole-disk device holding it. Aliased paths
// resolve to their alias target; symbolic links are followed once and the partition
// number is stripped from recognised device names.
func (d *BlockDeviceIO) ResolveDevice(path string) (string, error) {
	target := d.alias(path)
	if !d.linkExists(target) {
		return "", fmt.Errorf("%s: %w", path, ErrDeviceNotFound)
	}

	if lr, ok := d.fs.(afero.LinkReader); ok {
		if link, err := lr.ReadlinkIfPossible(target); err == nil {
			if !filepath.IsAbs(link) {
				link = filepath.Join(filepath.Dir(target), link)
			}
			target = link
		}
	}

	if m := wholeDiskPattern.FindString(target); m != "" {
		return m, nil
	}

	d.logger.WithField("device", path).Debugf("%s is not a partition node, using it as the disk", target)
	return target, nil
}

// Exists reports whether path, or its alias target, exists.
func (d *BlockDeviceIO) Exists(path string) bool {
	ok, err := afero.Exists(d.fs, d.alias(path))
	return err == nil && ok
}

// linkExists is Exists without following a final symbolic link.
func (d *BlockDeviceIO) linkExists(path string) bool {
	if ls, ok := d.fs.(afero.Lstater); ok {
		_, _, err := ls.LstatIfPossible(path)
		return err == nil
	}
	ok, err := afero.Exists(d.fs, path)
	return err == nil && ok
}

// BootSlotSuffix returns the configured slot suffix, or the androidboot.slot_suffix
// reported in bootconfig or the kernel command line.
func (d *BlockDeviceIO) BootSlotSuffix() (string, error) {
	if d.slotSuffix != "" {
		return d.slotSuffix, nil
	}

	for _, name := range []string{"bootconfig", "cmdline"} {
		data, err := afero.ReadFile(d.fs, filepath.Join(d.procRoot, name))
		if err != nil {
			continue
		}
		if m := slotSuffixPattern.FindSubmatch(data); m != nil {
			return string(m[1]), nil
		}
	}

	return "", ErrSlotSuffixUnknown
}

func (d *BlockDeviceIO) openError(device string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", device, ErrDeviceNotFound)
	}
	return fmt.Errorf("failed to open %s: %w", device, err)
}
