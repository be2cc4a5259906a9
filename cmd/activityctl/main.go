package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"example.com/extracurricular/internal/api"
	"example.com/extracurricular/internal/client"
)

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var (
		baseURL = envOr("ACTIVITYCTL_URL", "http://localhost:8080")
		out     = envOr("ACTIVITYCTL_OUT", "text")
		timeout = 10 * time.Second
		cl      *client.Client
	)

	root := &cobra.Command{
		Use:          "activityctl",
		Short:        "Browse activities and manage sign-ups",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if out != "text" && out != "json" {
				return fmt.Errorf("--output must be json or text, got %q", out)
			}
			var err error
			cl, err = client.New(baseURL, nil)
			return err
		},
	}
	root.SetOut(stdout)
	root.PersistentFlags().StringVar(&baseURL, "base-url", baseURL, "enrollment API base URL (env ACTIVITYCTL_URL)")
	root.PersistentFlags().StringVarP(&out, "output", "o", out, "output format: json|text (env ACTIVITYCTL_OUT)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", timeout, "request timeout")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List activities with their rosters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			activities, err := cl.List(ctx)
			if err != nil {
				return err
			}
			if out == "json" {
				return printJSON(cmd.OutOrStdout(), activities)
			}
			printActivities(cmd.OutOrStdout(), activities)
			return nil
		},
	}

	signupCmd := &cobra.Command{
		Use:   "signup <activity> <email>",
		Short: "Sign a student up for an activity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			msg, err := cl.SignUp(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printMessage(cmd.OutOrStdout(), out, msg)
		},
	}

	unregisterCmd := &cobra.Command{
		Use:   "unregister <activity> <email>",
		Short: "Remove a student from an activity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			msg, err := cl.Unregister(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printMessage(cmd.OutOrStdout(), out, msg)
		},
	}

	root.AddCommand(listCmd, signupCmd, unregisterCmd)
	return root
}

func printActivities(w io.Writer, activities api.ActivitiesResponse) {
	names := make([]string, 0, len(activities))
	for name := range activities {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a := activities[name]
		fmt.Fprintf(w, "%s (%d/%d) %s\n", name, len(a.Participants), a.MaxParticipants, a.Schedule)
		for _, p := range a.Participants {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	}
}

func printMessage(w io.Writer, format, msg string) error {
	if format == "json" {
		return printJSON(w, api.MessageResponse{Message: msg})
	}
	_, err := fmt.Fprintln(w, msg)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
