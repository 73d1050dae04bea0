package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-bootctl/internal/device"
	"github.com/deploymenttheory/go-bootctl/internal/services"
	"github.com/deploymenttheory/go-bootctl/internal/testutil"
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

// ImageDevice holds the paths of a scratch disk and devinfo image
type ImageDevice struct {
	Dir         string
	DiskPath    string
	DevinfoPath string
	keep        bool
}

// createImages writes a GPT disk image and a devinfo image into a temporary directory
func createImages(devinfoMajor, devinfoMinor uint16, keep bool) (*ImageDevice, error) {
	fmt.Printf("=== Creating images ===\n")

	dir, err := os.MkdirTemp("", "bootctl-images-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}

	img := &ImageDevice{
		Dir:         dir,
		DiskPath:    filepath.Join(dir, "disk.img"),
		DevinfoPath: filepath.Join(dir, "devinfo.img"),
		keep:        keep,
	}

	fs := afero.NewOsFs()
	disk := testutil.GptImage(types.AbAttrActive|types.AbAttrSuccessful, 0)
	if err := afero.WriteFile(fs, img.DiskPath, disk, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write disk image: %w", err)
	}
	record := testutil.DevinfoImage(devinfoMajor, devinfoMinor, types.DevInfoFlagActive|types.DevInfoFlagSuccessful, 0)
	if err := afero.WriteFile(fs, img.DevinfoPath, record, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write devinfo image: %w", err)
	}

	fmt.Printf("Disk:    %s (%d bytes)\n", img.DiskPath, len(disk))
	fmt.Printf("Devinfo: %s (version %d.%d)\n", img.DevinfoPath, devinfoMajor, devinfoMinor)
	return img, nil
}

func (img *ImageDevice) cleanup() {
	if img.keep {
		fmt.Printf("Keeping images in %s\n", img.Dir)
		return
	}
	os.RemoveAll(img.Dir)
}

// bootControl wires the images in as the devinfo and boot partitions
func (img *ImageDevice) bootControl(logger logrus.FieldLogger) (*services.BootControl, *device.BlockDeviceIO) {
	cfg := &device.Config{
		DevinfoPath: "devinfo",
		BootAPath:   "boot_a",
		BootBPath:   "boot_b",
		SlotSuffix:  "_a",
		DeviceAliases: map[string]string{
			"devinfo": img.DevinfoPath,
			"boot_a":  img.DiskPath,
			"boot_b":  img.DiskPath,
		},
	}
	dev := device.NewBlockDeviceIO(afero.NewOsFs(), cfg, logger)
	return services.NewBootControl(dev, services.BootControlConfig{
		DevinfoPath: cfg.DevinfoPath,
		BootAPath:   cfg.BootAPath,
		BootBPath:   cfg.BootBPath,
		Logger:      logger,
	}), dev
}

func printState(bc *services.BootControl) error {
	if err := bc.Refresh(); err != nil {
		return err
	}
	active, err := bc.ActiveBootSlot()
	if err != nil {
		return err
	}
	fmt.Printf("Authority: %s, slots: %d, active: %s\n", bc.Authority(), bc.NumberSlots(), bc.SlotSuffix(active))
	for slot := uint32(0); slot < bc.NumberSlots(); slot++ {
		state, err := bc.SlotState(slot)
		if err != nil {
			return err
		}
		fmt.Printf("  %s active=%t successful=%t unbootable=%t\n", bc.SlotSuffix(slot), state.Active, state.Successful, state.Unbootable)
	}
	return nil
}

// testSwitch flips the active slot twice and checks the resulting metadata
func testSwitch(img *ImageDevice, logger logrus.FieldLogger, want types.AuthorityKind) error {
	bc, dev := img.bootControl(logger)

	fmt.Printf("\n=== Initial state ===\n")
	if err := printState(bc); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	if bc.Authority() != want {
		return fmt.Errorf("expected %s authority, got %s", want, bc.Authority())
	}

	for _, slot := range []uint32{1, 0} {
		fmt.Printf("\n=== Activating slot %s ===\n", bc.SlotSuffix(slot))
		if err := bc.SetActiveBootSlot(slot); err != nil {
			return fmt.Errorf("activation failed: %w", err)
		}
		if err := printState(bc); err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
		active, err := bc.ActiveBootSlot()
		if err != nil {
			return err
		}
		if active != slot {
			return fmt.Errorf("expected active slot %d, got %d", slot, active)
		}
		fmt.Printf("✓ slot %s is active\n", bc.SlotSuffix(slot))
	}

	store := services.NewGptStore(dev, "boot_a", logger)
	if err := store.Load(); err != nil {
		return fmt.Errorf("failed to reload gpt: %w", err)
	}
	report, err := store.CrcReport()
	if err != nil {
		return err
	}
	if !report.Consistent() {
		return fmt.Errorf("gpt checksums are inconsistent: %+v", report)
	}
	fmt.Printf("✓ primary and backup checksums are consistent\n")
	return nil
}

func main() {
	keep := len(os.Args) > 1 && os.Args[1] == "--keep"

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	scenarios := []struct {
		name         string
		major, minor uint16
		authority    types.AuthorityKind
	}{
		{"devinfo without slot data", 3, 1, types.AuthorityGpt},
		{"devinfo with slot data", 3, 3, types.AuthorityDevinfo},
	}

	failed := false
	for _, sc := range scenarios {
		fmt.Printf("\n##### %s #####\n", sc.name)

		img, err := createImages(sc.major, sc.minor, keep)
		if err != nil {
			fmt.Printf("✗ %v\n", err)
			failed = true
			continue
		}

		if err := testSwitch(img, logger, sc.authority); err != nil {
			fmt.Printf("✗ %v\n", err)
			failed = true
		}
		img.cleanup()
	}

	if failed {
		os.Exit(1)
	}
	fmt.Printf("\n✓ all scenarios passed\n")
}
