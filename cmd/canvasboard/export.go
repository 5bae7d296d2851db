/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"canvasboard/internal/editor"
	"canvasboard/internal/export"
)

func newExportCmd(c *cli) *cobra.Command {
	var (
		format, out, name string
		bgColor, bgImage  string
		open, toStdout    bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the saved board as HTML, PDF or PNG",
		Long: `Export renders the saved board once and hands the same bytes to every
destination: the export directory, the system viewer (--open) or stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("open") {
				open = c.cfg.Export.Open
			}
			if out == "" {
				out = c.cfg.Export.Dir
			}
			return c.withState(cmd.Context(), func(st *editor.State) error {
				if bgColor != "" {
					if err := st.Board().SetBackgroundColor(bgColor); err != nil {
						return err
					}
				}
				if bgImage != "" {
					data, err := os.ReadFile(bgImage)
					if err != nil {
						return err
					}
					if err := st.Board().SetBackgroundImage(data); err != nil {
						return err
					}
				}

				if toStdout {
					_, err := st.Export(cmd.Context(), f, export.WriterSink{W: cmd.OutOrStdout()})
					return err
				}
				file := &export.FileSink{Dir: out, Name: name}
				sinks := []export.Sink{file}
				if open {
					sinks = append([]export.Sink{export.ViewerSink{}}, sinks...)
				}
				doc, err := st.Export(cmd.Context(), f, sinks...)
				if p := file.Path(); p != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", p, len(doc.Body))
				}
				return err
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&format, "format", "f", string(export.FormatHTML), "Output format: html, pdf or png")
	fl.StringVarP(&out, "out", "o", "", "Directory to write the export to")
	fl.StringVar(&name, "name", "", "File name; defaults to the configured name with the format's extension")
	fl.BoolVar(&open, "open", false, "Also open the export in the system viewer (default from config export.open)")
	fl.BoolVar(&toStdout, "stdout", false, "Write the export to stdout only")
	fl.StringVar(&bgColor, "bg-color", "", "Background color for this export")
	fl.StringVar(&bgImage, "bg-image", "", "Background image file for this export")
	return cmd
}
