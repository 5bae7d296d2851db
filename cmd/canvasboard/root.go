/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"canvasboard/internal/config"
	"canvasboard/internal/crash"
	"canvasboard/internal/editor"
	applog "canvasboard/internal/log"
)

// cli carries the resolved configuration from the root command to its children.
type cli struct {
	cfg     config.AppConfig
	verbose bool
	driver  string
	slot    string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "canvasboard",
		Short: "A free-form canvas of text boxes, notes and images",
		Long: `Canvasboard keeps a single board of positioned text boxes, sticky notes and
images. The board is saved to one slot and can be exported as a standalone
HTML page, a PDF or a PNG.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) { _ = applog.Close() },
	}
	pf := root.PersistentFlags()
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&c.driver, "storage", "", "Storage driver: file, sqlite or memory")
	pf.StringVar(&c.slot, "slot", "", "Path of the storage slot")

	root.AddCommand(
		newVersionCmd(),
		newAddCmd(c),
		newDropCmd(c),
		newImageCmd(c),
		newEditCmd(c),
		newListCmd(c),
		newShowCmd(c),
		newClearCmd(c),
		newExportCmd(c),
		newServeCmd(c),
		newUICmd(c),
	)
	return root
}

func (c *cli) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.driver != "" {
		cfg.Storage.Driver = c.driver
	}
	if c.slot != "" {
		cfg.Storage.Path = c.slot
	}
	if c.verbose {
		cfg.Logging.Level = "debug"
	}
	c.cfg = cfg
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	applog.WithComponent("cli").Debug("config", slog.String("summary", cfg.Summary()))
	return nil
}

// withState opens the editor on the configured slot, restores the saved board
// and hands it to fn. Panics inside fn leave a crash report and an autosave.
func (c *cli) withState(ctx context.Context, fn func(st *editor.State) error) error {
	st, err := editor.New(editor.Options{Config: c.cfg})
	if err != nil {
		return err
	}
	defer st.Close()
	defer crash.Recover(st)
	if err := st.Init(ctx); err != nil {
		return err
	}
	return fn(st)
}
