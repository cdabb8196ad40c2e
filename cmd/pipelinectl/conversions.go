package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xavierca1/institut-pipeline/internal/app"
	"github.com/xavierca1/institut-pipeline/internal/logger"
)

func conversionsCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conversions",
		Short: "Inspect and recover lead conversions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stuck",
		Short: "List conversion intents stuck in PENDING or PROVISIONED",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, load)
			if err != nil {
				return err
			}
			defer a.Close()

			stuck, err := a.Reconcile.FindStuck(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(stuck) == 0 {
				fmt.Fprintln(out, "no stuck conversions")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INTENT\tLEAD\tSTATE\tORGANIZATION\tIDLE\tLAST ERROR")
			now := time.Now()
			for _, in := range stuck {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					in.ID, in.LeadID, in.State, in.OrganizationID,
					now.Sub(in.UpdatedAt).Round(time.Second), in.LastError)
			}
			return tw.Flush()
		},
	})

	var operator string
	resume := &cobra.Command{
		Use:   "resume <intent-id>",
		Short: "Link a provisioned tenant to its lead and send the welcome email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, load)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Convert.Resume(cmd.Context(), args[0], operator)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	resume.Flags().StringVar(&operator, "operator", "pipelinectl", "operator id recorded on the audit note")
	cmd.AddCommand(resume)

	abandon := &cobra.Command{
		Use:   "abandon <intent-id>",
		Short: "Release a stale PENDING intent that provisioned no organization",
		Long: "Marks the intent FAILED so the lead can be converted again. Refused while the\n" +
			"intent may still be running or when an organization was created from its lead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, load)
			if err != nil {
				return err
			}
			defer a.Close()

			intent, err := a.Convert.Abandon(cmd.Context(), args[0], operator)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "intent %s abandoned, lead %s can be converted again\n", intent.ID, intent.LeadID)
			return nil
		},
	}
	abandon.Flags().StringVar(&operator, "operator", "pipelinectl", "operator id recorded on the intent")
	cmd.AddCommand(abandon)

	return cmd
}

func openApp(cmd *cobra.Command, load configLoader) (*app.App, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging)
	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}
