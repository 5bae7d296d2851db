/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"canvasboard/internal/drag"
	"canvasboard/internal/editor"
	"canvasboard/internal/imagesrc"
	"canvasboard/internal/item"
	"canvasboard/internal/persist"
)

func newAddCmd(c *cli) *cobra.Command {
	var left, top, src string
	cmd := &cobra.Command{
		Use:   "add <text|note|image> [content]",
		Short: "Add an item at an explicit position",
		Example: `  canvasboard add note "Buy milk" --left 40px --top 60px
  canvasboard add image --src photo.png --left 10% --top 2em`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := item.ParseKind(args[0])
			if err != nil {
				return err
			}
			pos, err := item.ParsePosition(left, top)
			if err != nil {
				return err
			}
			var content, source string
			if len(args) == 2 {
				content = args[1]
			}
			if src != "" {
				if source, err = readImageSource(src); err != nil {
					return err
				}
			}
			return c.withState(cmd.Context(), func(st *editor.State) error {
				it, err := st.Board().CreateItem(kind, content, pos, source)
				if err != nil {
					return err
				}
				if err := st.Save(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s at %s, %s\n", it.Kind(), it.Position().Left, it.Position().Top)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&left, "left", "0px", "Left offset as a CSS length")
	cmd.Flags().StringVar(&top, "top", "0px", "Top offset as a CSS length")
	cmd.Flags().StringVar(&src, "src", "", "Image file for image items")
	return cmd
}

func newDropCmd(c *cli) *cobra.Command {
	var x, y float64
	cmd := &cobra.Command{
		Use:   "drop <text|note>",
		Short: "Place a palette item as if dropped at client coordinates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withState(cmd.Context(), func(st *editor.State) error {
				it, ok := st.Board().HandleDrop(args[0], drag.Point{X: x, Y: y})
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing dropped")
					return nil
				}
				if err := st.Save(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Dropped %s at %s, %s\n", it.Kind(), it.Position().Left, it.Position().Top)
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&x, "x", 0, "Client x coordinate")
	cmd.Flags().Float64Var(&y, "y", 0, "Client y coordinate")
	return cmd
}

func newImageCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "image <file>",
		Short: "Upload an image onto the board at the default position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return c.withState(cmd.Context(), func(st *editor.State) error {
				it, err := st.Board().HandleImageUpload(data)
				if err != nil {
					return err
				}
				if it == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Empty file, nothing added")
					return nil
				}
				if err := st.Save(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added image at %s, %s\n", it.Position().Left, it.Position().Top)
				return nil
			})
		},
	}
}

func newEditCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <index> <content>",
		Short: "Replace the content of a text or note, addressed by its list index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withState(cmd.Context(), func(st *editor.State) error {
				it, err := itemAt(st, args[0])
				if err != nil {
					return err
				}
				if err := st.Board().SetContent(it.ID(), args[1]); err != nil {
					return err
				}
				return st.Save(cmd.Context())
			})
		},
	}
}

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the saved items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withState(cmd.Context(), func(st *editor.State) error {
				return printItems(cmd.OutOrStdout(), st.Board().Items())
			})
		},
	}
}

func newShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withState(cmd.Context(), func(st *editor.State) error {
				data, err := st.Snapshot()
				if err != nil {
					return err
				}
				recs, err := persist.Decode(data)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			})
		},
	}
}

func newClearCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every item and save the empty board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withState(cmd.Context(), func(st *editor.State) error {
				n := st.Board().Len()
				st.Clear()
				if err := st.Save(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d item(s)\n", n)
				return nil
			})
		},
	}
}

func itemAt(st *editor.State, arg string) (*item.Item, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("index %q: %w", arg, err)
	}
	items := st.Board().Items()
	if i < 0 || i >= len(items) {
		return nil, fmt.Errorf("index %d out of range, board has %d item(s)", i, len(items))
	}
	return items[i], nil
}

func printItems(w io.Writer, items []*item.Item) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKIND\tLEFT\tTOP\tCONTENT")
	for i, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, it.Kind(), it.Position().Left, it.Position().Top, summary(it))
	}
	return tw.Flush()
}

func summary(it *item.Item) string {
	if it.Kind() == item.Image {
		data, err := imagesrc.Bytes(it.ImageSource())
		if err != nil {
			return "(image)"
		}
		info, err := imagesrc.Inspect(data)
		if err != nil {
			return "(image)"
		}
		return fmt.Sprintf("(%s %dx%d)", info.Format, info.Width, info.Height)
	}
	s := strings.Join(strings.Fields(it.Content()), " ")
	if r := []rune(s); len(r) > 40 {
		s = string(r[:39]) + "…"
	}
	return s
}

func readImageSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	src, err := imagesrc.FromBytes(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}
