package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"certwallet/internal/app"
	"certwallet/internal/wallet/service"
)

func newImportCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "imports certificate documents into the wallet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := flags.openWallet(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			var failed int
			for _, path := range args {
				raw, readErr := os.ReadFile(path)
				if readErr != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, readErr)
					failed++
					continue
				}
				res := a.Importer.Do(cmd.Context(), service.ImportRequest{Raw: raw})
				if res.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, res.Err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", res.Status, res.Filename, res.Credential.ID())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed to import", failed, len(args))
			}
			return nil
		},
	}
}

func newListCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "lists loaded certificates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := flags.openWallet(cmd.Context(), cmd, app.WithoutEvents())
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILENAME\tID\tISSUED\tISSUER")
			for _, e := range a.Service.List() {
				c := e.Credential
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Filename, c.ID(), c.IssuedOn().Format(time.DateOnly), c.Issuer().URI)
			}
			return tw.Flush()
		},
	}
}

func newVerifyCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <filename>",
		Short: "resolves the issuer and checks revocation for a loaded certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := flags.openWallet(cmd.Context(), cmd, app.WithoutEvents())
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			v, err := a.Service.Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "verdict:    %s\n", v.Verdict)
			fmt.Fprintf(out, "revocation: %s\n", v.Revocation)
			if v.Key != nil {
				fmt.Fprintf(out, "key:        %s\n", v.Key.Key)
			}
			if v.Err != nil {
				fmt.Fprintf(out, "reason:     %v\n", v.Err)
			}
			return nil
		},
	}
}

func newDeleteCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <filename>",
		Short: "removes a certificate from the wallet and its store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := flags.openWallet(cmd.Context(), cmd, app.WithoutEvents())
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			if err := a.Service.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func closeApp(a *app.App, err *error) {
	if cerr := a.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
