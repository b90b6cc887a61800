package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/rowstream/pkg/codec/registry"
	"github.com/ajitpratap0/rowstream/pkg/compression"
	rsjson "github.com/ajitpratap0/rowstream/pkg/json"
	"github.com/ajitpratap0/rowstream/pkg/storage"
)

type formatInfo struct {
	MimeType  string `json:"mime_type"`
	Extension string `json:"extension,omitempty"`
	Decode    bool   `json:"decode"`
	Encode    bool   `json:"encode"`
}

type formatsReport struct {
	Formats     []formatInfo `json:"formats"`
	Compression []string     `json:"compression"`
}

func supportedFormats() formatsReport {
	decoders, encoders := registry.Decoders(), registry.Encoders()

	mimes := map[string]struct{}{}
	for _, m := range decoders.SupportedMimeTypes() {
		mimes[m] = struct{}{}
	}
	for _, m := range encoders.SupportedMimeTypes() {
		mimes[m] = struct{}{}
	}

	var report formatsReport
	for m := range mimes {
		report.Formats = append(report.Formats, formatInfo{
			MimeType:  m,
			Extension: storage.ExtensionFor(m),
			Decode:    decoders.IsSupported(m),
			Encode:    encoders.IsSupported(m),
		})
	}
	sort.Slice(report.Formats, func(i, j int) bool {
		return report.Formats[i].MimeType < report.Formats[j].MimeType
	})
	for _, alg := range compression.Algorithms() {
		report.Compression = append(report.Compression, string(alg))
	}
	return report
}

func newFormatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List supported formats and compression algorithms",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := supportedFormats()
			out := cmd.OutOrStdout()

			if asJSON {
				enc := rsjson.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			fmt.Fprintf(out, "%-40s %-9s %-7s %s\n", "MIME TYPE", "EXT", "DECODE", "ENCODE")
			for _, f := range report.Formats {
				fmt.Fprintf(out, "%-40s %-9s %-7s %s\n", f.MimeType, f.Extension, yesNo(f.Decode), yesNo(f.Encode))
			}
			fmt.Fprintln(out, "\nCompression:")
			for _, c := range report.Compression {
				fmt.Fprintf(out, "  - %s (%s)\n", c, compression.Extension(compression.Algorithm(c)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the list as JSON")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
