package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/client"
)

func newOpenCmd(load loadFunc) *cobra.Command {
	var (
		server  string
		secret  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Ask a running server to open the door",
		Long: `Posts the shared door secret to /api/trigger_door. The scanner picks the
command up on its next poll. Without --secret the configured door.secret
(GATEHOUSE_DOOR_SECRET) is used.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if secret == "" {
				cfg, _, err := load(c)
				if err != nil {
					return err
				}
				secret = cfg.Door.Secret
			}

			cl, err := client.New(server, &http.Client{Timeout: timeout})
			if err != nil {
				return err
			}

			res, err := cl.TriggerDoor(c.Context(), secret)
			if err != nil {
				if errors.Is(err, client.ErrUnreachable) {
					return fmt.Errorf("could not reach server at %s: is it running?", server)
				}
				return err
			}

			fmt.Fprintln(c.OutOrStdout(), res.Message())
			if res.Outcome != client.OutcomeSent {
				return errors.New("door command not sent")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://127.0.0.1:8080", "gatehouse server URL")
	cmd.Flags().StringVar(&secret, "secret", "", "door secret (defaults to door.secret)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	return cmd
}
