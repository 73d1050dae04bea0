package status

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// FormatOutput formats slot status according to output format
func FormatOutput(w io.Writer, response *Response, format string) error {
	switch format {
	case "json":
		return formatJSON(w, response)
	case "yaml":
		return formatYAML(w, response)
	case "table":
		return formatTable(w, response)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatTable formats status as a table
func formatTable(out io.Writer, response *Response) error {
	fmt.Fprintf(out, "Authority: %s\n", response.Authority)
	if response.CurrentSlotOK {
		fmt.Fprintf(out, "Current slot: %s\n", response.CurrentSlot)
	}
	fmt.Fprintf(out, "\n")

	if len(response.Slots) == 0 {
		fmt.Fprintln(out, "No boot slots found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "SLOT\tACTIVE\tSUCCESSFUL\tBOOTABLE\n")
	fmt.Fprintf(w, "----\t------\t----------\t--------\n")
	for _, slot := range response.Slots {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", slot.Suffix, yesNo(slot.Active), yesNo(slot.Successful), yesNo(slot.Bootable))
	}

	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// formatJSON formats status as JSON
func formatJSON(w io.Writer, response *Response) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// formatYAML formats status as YAML
func formatYAML(w io.Writer, response *Response) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(response)
}
