package dump

import (
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-bootctl/internal/interfaces"
	"github.com/deploymenttheory/go-bootctl/internal/parsers/devinfo"
	"github.com/deploymenttheory/go-bootctl/internal/services"
	"github.com/deploymenttheory/go-bootctl/internal/types"
	"github.com/deploymenttheory/go-bootctl/pkg/app"
)

// HandleGpt loads and decodes the GPT of a device. Only boot_ entries are listed unless
// All is set.
func HandleGpt(ctx *app.Context, dev interfaces.DeviceIO, req *GptRequest) (*GptResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	store := services.NewGptStore(dev, req.Device, ctx.Logger)
	store.SetTraceBytes(req.TraceBytes)
	if err := store.Load(); err != nil {
		return nil, app.WrapError("failed to load gpt", err)
	}

	report, err := store.CrcReport()
	if err != nil {
		return nil, app.WrapError("failed to verify gpt checksums", err)
	}
	if !report.Consistent() {
		ctx.Log("GPT checksums do not match their stored values")
	}

	hdr := store.PrimaryHeader()
	resp := &GptResponse{
		Device:    req.Device,
		BlockSize: store.BlockSize(),
		Header: HeaderInfo{
			Revision:       fmt.Sprintf("%d.%d", hdr.Revision()>>16, hdr.Revision()&0xFFFF),
			HeaderSize:     hdr.HeaderSize(),
			CurrentLba:     hdr.CurrentLba(),
			BackupLba:      hdr.BackupLba(),
			FirstUsableLba: hdr.FirstUsableLba(),
			LastUsableLba:  hdr.LastUsableLba(),
			DiskGUID:       hdr.DiskGUID().String(),
			StartLba:       hdr.StartLba(),
			EntryCount:     hdr.EntryCount(),
			EntrySize:      hdr.EntrySize(),
		},
		Checksums:  report,
		Consistent: report.Consistent(),
	}

	for i, e := range store.Entries() {
		if e.IsEmpty() {
			continue
		}
		if !req.All && !strings.HasPrefix(e.Name(), types.BootPartitionPrefix) {
			continue
		}
		resp.Partitions = append(resp.Partitions, PartitionInfo{
			Index:      i,
			Name:       e.Name(),
			TypeGUID:   e.TypeGUID().String(),
			GUID:       e.GUID().String(),
			FirstLba:   e.FirstLBA(),
			LastLba:    e.LastLBA(),
			Attributes: fmt.Sprintf("0x%016x", e.Attributes()),
			Active:     e.AttributeSet(types.AbAttrActiveBit),
			Successful: e.AttributeSet(types.AbAttrSuccessfulBit),
			Unbootable: e.AttributeSet(types.AbAttrUnbootableBit),
		})
	}

	return resp, nil
}

// HandleDevinfo reads and decodes a devinfo record. Records that are not authoritative
// are still reported, with Valid false.
func HandleDevinfo(ctx *app.Context, dev interfaces.DeviceIO, req *DevinfoRequest) (*DevinfoResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	data, err := dev.ReadBytes(req.Path, 0, types.DevInfoSize)
	if err != nil {
		return nil, app.WrapError("failed to read devinfo", err)
	}

	record, err := devinfo.Decode(data)
	if err != nil {
		return nil, app.WrapError("failed to decode devinfo", err)
	}

	resp := &DevinfoResponse{
		Path:    req.Path,
		Magic:   fmt.Sprintf("0x%08x", record.Magic()),
		Version: fmt.Sprintf("%d.%d", record.VerMajor(), record.VerMinor()),
		Valid:   record.Valid(),
	}
	ctx.Log(fmt.Sprintf("Devinfo %s version %s valid=%t", req.Path, resp.Version, resp.Valid))

	for slot := uint32(0); slot < types.DevInfoSlotCount; slot++ {
		sd := record.Slot(slot)
		resp.Slots = append(resp.Slots, DevinfoSlotInfo{
			Suffix:     types.SlotSuffix(slot),
			RetryCount: sd.RetryCount(),
			Flags:      fmt.Sprintf("0x%02x", sd.Flags()),
			Active:     sd.Active(),
			Successful: sd.Successful(),
			Unbootable: sd.Unbootable(),
			FastbootOK: sd.FastbootOK(),
		})
	}

	return resp, nil
}
