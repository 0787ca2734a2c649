package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
)

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [username]",
		Short: "Read a password from stdin and print an operators entry",
		Long: `Reads one line from stdin and prints its bcrypt hash. With a username the
output is ready to append to GATEHOUSE_OPERATORS as username:hash.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			line, err := bufio.NewReader(c.InOrStdin()).ReadString('\n')
			password := strings.TrimRight(line, "\r\n")
			if password == "" {
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				return errors.New("empty password")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				fmt.Fprintf(c.OutOrStdout(), "%s:%s\n", args[0], hash)
				return nil
			}
			fmt.Fprintln(c.OutOrStdout(), hash)
			return nil
		},
	}
}
