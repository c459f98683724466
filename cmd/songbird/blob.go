package main

import (
	"fmt"
	"io"

	"github.com/rawbytedev/songbird/pkg/blob"
	"github.com/rawbytedev/songbird/pkg/buffer"
	"github.com/spf13/cobra"
)

func blobCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blob",
		Short: "Store and fetch named blobs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "put <name>",
			Short: "Store standard input under name",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(func(s *blob.FSStore) error {
					buf := buffer.New()
					if _, err := io.Copy(buf, cmd.InOrStdin()); err != nil {
						return err
					}
					return blob.SaveBuffer(s, args[0], buf)
				})
			},
		},
		&cobra.Command{
			Use:   "get <name>",
			Short: "Write the blob stored under name to standard output",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(func(s *blob.FSStore) error {
					buf, err := blob.LoadBuffer(s, args[0])
					if err != nil {
						return err
					}
					_, err = io.Copy(cmd.OutOrStdout(), buf)
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "size <name>",
			Short: "Print the stored size of name in bytes",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(func(s *blob.FSStore) error {
					n, err := s.Size(args[0])
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
					return err
				})
			},
		},
	)
	return cmd
}

func (a *app) withStore(fn func(*blob.FSStore) error) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		_ = s.Close()
		return err
	}
	return s.Close()
}
