package dump

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// FormatOutput formats a dump response according to output format. response must be a
// *GptResponse or a *DevinfoResponse.
func FormatOutput(w io.Writer, response interface{}, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(response)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		encoder.SetIndent(2)
		return encoder.Encode(response)
	case "table":
		switch r := response.(type) {
		case *GptResponse:
			return formatGptTable(w, r)
		case *DevinfoResponse:
			return formatDevinfoTable(w, r)
		default:
			return fmt.Errorf("unsupported response type %T", response)
		}
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func crcStatus(stored, computed uint32) string {
	if stored == computed {
		return fmt.Sprintf("0x%08x (ok)", stored)
	}
	return fmt.Sprintf("0x%08x (computed 0x%08x)", stored, computed)
}

func formatGptTable(out io.Writer, r *GptResponse) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Device:\t%s\n", r.Device)
	fmt.Fprintf(w, "Block size:\t%d\n", r.BlockSize)
	fmt.Fprintf(w, "Revision:\t%s\n", r.Header.Revision)
	fmt.Fprintf(w, "Disk GUID:\t%s\n", r.Header.DiskGUID)
	fmt.Fprintf(w, "Current/backup LBA:\t%d / %d\n", r.Header.CurrentLba, r.Header.BackupLba)
	fmt.Fprintf(w, "Usable LBAs:\t%d - %d\n", r.Header.FirstUsableLba, r.Header.LastUsableLba)
	fmt.Fprintf(w, "Entries:\t%d x %d bytes at LBA %d\n", r.Header.EntryCount, r.Header.EntrySize, r.Header.StartLba)
	fmt.Fprintf(w, "Header CRC32:\t%s\n", crcStatus(r.Checksums.HeaderStored, r.Checksums.HeaderComputed))
	fmt.Fprintf(w, "Entries CRC32:\t%s\n", crcStatus(r.Checksums.EntriesStored, r.Checksums.EntriesComputed))
	fmt.Fprintf(w, "Backup header CRC32:\t%s\n", crcStatus(r.Checksums.BackupHeaderStored, r.Checksums.BackupHeaderComputed))
	if r.Checksums.BackupEntriesMismatch {
		fmt.Fprintf(w, "Backup entries CRC32:\t0x%08x (mismatch)\n", r.Checksums.BackupEntriesStored)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n")
	if len(r.Partitions) == 0 {
		fmt.Fprintln(out, "No matching partitions.")
		return nil
	}

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "#\tNAME\tFIRST\tLAST\tATTRIBUTES\tA/S/U\n")
	fmt.Fprintf(w, "-\t----\t-----\t----\t----------\t-----\n")
	for _, p := range r.Partitions {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\n", p.Index, p.Name, p.FirstLba, p.LastLba, p.Attributes, flagString(p.Active, p.Successful, p.Unbootable))
	}
	return w.Flush()
}

func formatDevinfoTable(out io.Writer, r *DevinfoResponse) error {
	fmt.Fprintf(out, "Path: %s\n", r.Path)
	fmt.Fprintf(out, "Magic: %s\n", r.Magic)
	fmt.Fprintf(out, "Version: %s (valid: %t)\n\n", r.Version, r.Valid)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SLOT\tRETRY\tFLAGS\tA/S/U\tFASTBOOT_OK\n")
	fmt.Fprintf(w, "----\t-----\t-----\t-----\t-----------\n")
	for _, s := range r.Slots {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%t\n", s.Suffix, s.RetryCount, s.Flags, flagString(s.Active, s.Successful, s.Unbootable), s.FastbootOK)
	}
	return w.Flush()
}

// flagString renders active/successful/unbootable as e.g. "A-U".
func flagString(active, successful, unbootable bool) string {
	b := []byte("---")
	if active {
		b[0] = 'A'
	}
	if successful {
		b[1] = 'S'
	}
	if unbootable {
		b[2] = 'U'
	}
	return string(b)
}
