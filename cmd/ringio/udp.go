package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreglyph/ringio"
	"github.com/coreglyph/ringio/internal/logging"
)

func newUDPEchoCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "udp-echo",
		Short: "Echo every UDP datagram back to its sender",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ringio.New(ringio.DefaultOptions())
			if err != nil {
				return err
			}
			defer rt.Close()

			return rt.Run(cmd.Context(), func(ctx context.Context) error {
				sock, err := ringio.BindUDP(ctx, addr)
				if err != nil {
					return err
				}
				defer sock.Close(ctx)
				logging.Info("udp echo listening", "addr", sock.LocalAddr())

				buf := make([]byte, 2048)
				for {
					n, peer, err := sock.RecvFrom(ctx, buf)
					if err != nil {
						return err
					}
					fmt.Printf("%d bytes from %s\n", n, peer)
					if _, err := sock.SendTo(ctx, buf[:n], peer); err != nil {
						return err
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7778", "bind address")
	return cmd
}
