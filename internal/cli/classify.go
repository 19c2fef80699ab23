package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"linkshell/internal/core/chatcode"
	perr "linkshell/internal/platform/errors"
)

type classified struct {
	Code   uint16        `json:"code"`
	Source string        `json:"source,omitempty"`
	Info   chatcode.Info `json:"info"`
}

func newClassifyCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify [code...]",
		Short: "Show how chat codes are classified",
		Long:  "Without arguments prints every known channel. Codes may be decimal or 0x-prefixed hex.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := classifyCodes(args)
			if err != nil {
				return err
			}
			return writeClassified(cmd.OutOrStdout(), rows, o.jsonOut())
		},
	}
}

func classifyCodes(args []string) ([]classified, error) {
	if len(args) == 0 {
		table := chatcode.Table()
		out := make([]classified, 0, len(table))
		for _, info := range table {
			out = append(out, classified{Code: info.Channel, Info: info})
		}
		return out, nil
	}

	out := make([]classified, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseUint(a, 0, 16)
		if err != nil {
			return nil, perr.InvalidArgf("chat code %q is not a 16-bit number", a)
		}
		c := chatcode.Code(v)
		out = append(out, classified{Code: uint16(v), Source: c.Source().String(), Info: c.Info()})
	}
	return out, nil
}

func writeClassified(w io.Writer, rows []classified, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, r := range rows {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tCHANNEL\tNAME\tCATEGORY\tTRANSLATABLE\tKEY\tSOURCE")
	for _, r := range rows {
		src := r.Source
		if src == "" {
			src = "-"
		}
		fmt.Fprintf(tw, "0x%04X\t0x%04X\t%s\t%s\t%t\t%s\t%s\n",
			r.Code, r.Info.Channel, r.Info.Name, r.Info.Category, r.Info.Translatable, r.Info.Key, src)
	}
	return tw.Flush()
}
