package services

import (
	"encoding/hex"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-bootctl/internal/interfaces"
	"github.com/deploymenttheory/go-bootctl/internal/parsers/devinfo"
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

// devinfoAuthority answers slot queries from the devinfo record.
type devinfoAuthority struct {
	dev        interfaces.DeviceIO
	path       string
	logger     logrus.FieldLogger
	traceBytes bool
	record     *devinfo.DevInfo
}

// Compile-time check to ensure devinfoAuthority implements SlotAuthority
var _ interfaces.SlotAuthority = (*devinfoAuthority)(nil)

// loadDevinfoAuthority reads the record at path and returns an authority when it is
// valid. The error wraps devinfo.ErrInvalidDevinfo when the record was read but is not
// authoritative.
func loadDevinfoAuthority(dev interfaces.DeviceIO, path string, logger logrus.FieldLogger, traceBytes bool) (*devinfoAuthority, error) {
	logger = logger.WithFields(logrus.Fields{"authority": types.AuthorityDevinfo.String(), "device": path})

	data, err := dev.ReadBytes(path, 0, types.DevInfoSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read devinfo: %w", err)
	}
	if traceBytes {
		logger.WithField("region", "devinfo").Trace(hex.EncodeToString(data))
	}

	record, err := devinfo.Decode(data)
	if err != nil {
		return nil, err
	}

	if !record.Valid() {
		return nil, fmt.Errorf("%w: magic 0x%08x version %d.%d", devinfo.ErrInvalidDevinfo, record.Magic(), record.VerMajor(), record.VerMinor())
	}

	return &devinfoAuthority{
		dev:        dev,
		path:       path,
		logger:     logger,
		traceBytes: traceBytes,
		record:     record,
	}, nil
}

func (a *devinfoAuthority) Kind() types.AuthorityKind {
	return types.AuthorityDevinfo
}

func (a *devinfoAuthority) slot(slot uint32) (*devinfo.SlotData, error) {
	sd := a.record.Slot(slot)
	if sd == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	return sd, nil
}

func (a *devinfoAuthority) IsSlotBootable(slot uint32) (bool, error) {
	sd, err := a.slot(slot)
	if err != nil {
		return false, err
	}
	return !sd.Unbootable(), nil
}

func (a *devinfoAuthority) IsSlotMarkedSuccessful(slot uint32) (bool, error) {
	sd, err := a.slot(slot)
	if err != nil {
		return false, err
	}
	return sd.Successful(), nil
}

func (a *devinfoAuthority) ActiveBootSlot() (uint32, error) {
	if a.record.Slot(1).Active() {
		return 1, nil
	}
	return 0, nil
}

// SetActiveBootSlot clears the active flag on the other slot, sets it on slot and writes
// the whole record back. The in-memory record only changes once the write succeeds.
func (a *devinfoAuthority) SetActiveBootSlot(slot uint32) error {
	if _, err := a.slot(slot); err != nil {
		return err
	}

	updated, err := devinfo.Decode(a.record.Encode())
	if err != nil {
		return err
	}
	active := updated.Slot(slot)
	inactive := updated.Slot((slot + 1) % types.DevInfoSlotCount)

	a.logger.WithField("slot", slot).Debugf("flags before: active 0x%02x inactive 0x%02x", active.Flags(), inactive.Flags())

	inactive.SetActive(false)
	active.SetActive(true)

	a.logger.WithField("slot", slot).Debugf("flags after: active 0x%02x inactive 0x%02x", active.Flags(), inactive.Flags())

	if err := a.sync(updated); err != nil {
		return err
	}
	a.record = updated
	return nil
}

func (a *devinfoAuthority) sync(record *devinfo.DevInfo) error {
	data := record.Encode()
	if a.traceBytes {
		a.logger.WithField("region", "devinfo").Trace(hex.EncodeToString(data))
	}

	if err := a.dev.WriteBytes(a.path, 0, data); err != nil {
		a.logger.Error("failed to write devinfo")
		return fmt.Errorf("could not update devinfo data: %w", err)
	}

	a.logger.Info("updated devinfo")
	return nil
}
