package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/coreglyph/ringio"
	"github.com/coreglyph/ringio/internal/logging"
)

func newEchoServerCommand() *cobra.Command {
	var addr string
	var streaming bool

	cmd := &cobra.Command{
		Use:   "echo-server",
		Short: "Accept TCP connections and echo every byte back",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ringio.New(ringio.DefaultOptions())
			if err != nil {
				return err
			}
			defer rt.Close()

			return rt.Run(cmd.Context(), func(ctx context.Context) error {
				ln, err := ringio.ListenTCP(ctx, addr)
				if err != nil {
					return err
				}
				defer ln.Close(ctx)
				logging.Info("echo server listening", "addr", ln.Addr())

				// Multishot accept: one submission serves every inbound
				// connection.
				inbound, err := ln.Incoming(ctx)
				if err != nil {
					return err
				}
				for {
					conn, peer, ok, err := inbound.Next(ctx)
					if err != nil {
						return err
					}
					if !ok {
						return nil
					}
					logging.Info("accepted", "peer", peer)
					rt.Go(ctx, func(ctx context.Context) error {
						return echo(ctx, conn, streaming)
					})
				}
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7777", "listen address")
	cmd.Flags().BoolVar(&streaming, "streaming", false, "use multishot receive per connection")
	return cmd
}

func echo(ctx context.Context, conn *ringio.Stream, streaming bool) error {
	defer conn.Close(ctx)
	if streaming {
		if err := conn.StartStreaming(ctx); err != nil {
			return err
		}
	}
	for {
		chunk, err := conn.Fill(ctx)
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			return nil
		}
		if err := conn.WriteAll(ctx, chunk); err != nil {
			return err
		}
		conn.Consume(len(chunk))
	}
}

func newEchoClientCommand() *cobra.Command {
	var addr, message string

	cmd := &cobra.Command{
		Use:   "echo-client",
		Short: "Send a message to the echo server and print the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ringio.New(ringio.DefaultOptions())
			if err != nil {
				return err
			}
			defer rt.Close()

			return rt.Run(cmd.Context(), func(ctx context.Context) error {
				conn, err := ringio.DialTCP(ctx, addr)
				if err != nil {
					return err
				}
				defer conn.Close(ctx)

				if err := conn.WriteAll(ctx, []byte(message)); err != nil {
					return err
				}
				reply := make([]byte, 0, len(message))
				buf := make([]byte, 512)
				for len(reply) < len(message) {
					n, err := conn.Read(ctx, buf)
					if err == io.EOF {
						break
					}
					if err != nil {
						return err
					}
					reply = append(reply, buf[:n]...)
				}
				fmt.Println(string(reply))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7777", "server address")
	cmd.Flags().StringVar(&message, "message", "helloworld", "message to send")
	return cmd
}
