package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"yliproxy/internal/index"
	"yliproxy/internal/memory"
	"yliproxy/internal/store"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List converted artifacts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}

			idx := index.New(st, nil, index.Options{})
			if err := idx.Refresh(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			artifacts := idx.ListSorted()
			if !isTerminal(out) {
				for _, a := range artifacts {
					fmt.Fprintln(out, st.PublicURL(a.ID))
				}
				return nil
			}
			return printTable(out, st, artifacts)
		},
	}
}

func printTable(w io.Writer, st *store.Store, artifacts []store.Artifact) error {
	if len(artifacts) == 0 {
		_, err := fmt.Fprintln(w, "No artifacts")
		return err
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Created", "Size", "Thumb", "URL"})
	for _, a := range artifacts {
		thumb := "-"
		if a.HasThumbnail {
			thumb = "yes"
		}
		tw.AppendRow(table.Row{a.CreatedAt.Local().Format("2006-01-02 15:04"), memory.FormatBytes(a.Size), thumb, st.PublicURL(a.ID)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	_, err := fmt.Fprintln(w, tw.Render())
	return err
}
