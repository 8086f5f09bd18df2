package commands

import (
	"net/url"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Solves the challenge once and prints the cookies of the accepted session.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		acquirer, err := newAcquirer(globals.cfg)
		if err != nil {
			return err
		}
		sess, err := acquirer.Acquire(cmd.Context())
		if err != nil {
			return err
		}

		challengeUrl, err := url.Parse(globals.cfg.Endpoints.Challenge)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)
		t.SetTitle("session accepted after %d attempt(s)", sess.Attempts)
		t.AppendHeader(table.Row{"Cookie", "Value"})
		for _, cookie := range sess.Cookies(challengeUrl) {
			t.AppendRow(table.Row{cookie.Name, cookie.Value})
		}
		t.Render()
		return nil
	},
}
