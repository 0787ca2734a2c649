package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/db"
	"github.com/gatehouse/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse/gatehouse/internal/gatehouse/store/sqlite"
)

func newTagsCmd(load loadFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage registered RFID tags",
	}
	cmd.AddCommand(newTagsAddCmd(load), newTagsListCmd(load))
	return cmd
}

// withTagStore opens the database for the duration of fn.
func withTagStore(c *cobra.Command, load loadFunc, fn func(ctx context.Context, s *sqlite.TagStore) error) error {
	cfg, _, err := load(c)
	if err != nil {
		return err
	}

	ctx := c.Context()
	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		return err
	}
	defer conn.Close()

	writer := db.NewWorker(conn)
	defer writer.Close()

	return fn(ctx, sqlite.NewTagStore(conn, writer))
}

func newTagsAddCmd(load loadFunc) *cobra.Command {
	var image string

	cmd := &cobra.Command{
		Use:   "add <uid> <name>",
		Short: "Register a tag for a person",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			rec := store.TagRecord{
				Credential:    strings.TrimSpace(args[0]),
				PrincipalName: strings.TrimSpace(args[1]),
				ImageRef:      image,
			}
			if rec.Credential == "" || rec.PrincipalName == "" {
				return errors.New("uid and name must not be blank")
			}

			return withTagStore(c, load, func(ctx context.Context, s *sqlite.TagStore) error {
				if err := s.Register(ctx, rec); err != nil {
					switch {
					case errors.Is(err, store.ErrDuplicateCredential):
						return fmt.Errorf("tag %s is already registered", rec.Credential)
					case errors.Is(err, store.ErrDuplicatePrincipal):
						return fmt.Errorf("%s already has a tag", rec.PrincipalName)
					default:
						return err
					}
				}
				fmt.Fprintf(c.OutOrStdout(), "registered %s for %s\n", rec.Credential, rec.PrincipalName)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "image reference (default "+store.DefaultImageRef+")")
	return cmd
}

func newTagsListCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tags",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return withTagStore(c, load, func(ctx context.Context, s *sqlite.TagStore) error {
				tags, err := s.List(ctx)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(c.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "UID\tNAME\tIMAGE\tREGISTERED")
				for _, t := range tags {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Credential, t.PrincipalName, t.ImageRef, t.CreatedAt.Local().Format(time.DateTime))
				}
				return tw.Flush()
			})
		},
	}
}
