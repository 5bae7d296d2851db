/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"canvasboard/internal/editor"
	applog "canvasboard/internal/log"
	"canvasboard/internal/server"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board over HTTP with a websocket pointer stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			if !cmd.Flags().Changed("watch") {
				watch = c.cfg.Server.Watch
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return c.withState(ctx, func(st *editor.State) error {
				l := applog.WithComponent("cli")
				srv := server.New(server.Options{State: st})
				defer srv.Close()
				if watch {
					unwatch, err := srv.Watch(ctx)
					if err != nil {
						l.Warn("slot watch unavailable", slog.Any("err", err))
					} else {
						defer unwatch()
					}
				}
				l.Info("serving board", slog.String("slot", st.SlotPath()))
				return srv.ListenAndServe(ctx, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", true, "Reload the board when the slot file changes on disk")
	return cmd
}
