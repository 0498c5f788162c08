package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/danmuck/robolink/internal/protocol"
	"github.com/danmuck/robolink/internal/protocol/codes"
	"github.com/danmuck/robolink/internal/protocol/frame"
	"github.com/spf13/cobra"
)

func newEncodeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "encode <token>...",
		Short: "Print the hex frame for a message",
		Long: `Tokens are code names (PID, SET, SHOULDER) or typed numbers
with an f:, u: or i: prefix, for example:

  robolink encode PID SET SHOULDER f:1.5 f:0.1 f:0 f:10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := opts.table()
			if err != nil {
				return err
			}
			msg, err := protocol.ParseTokens(t, args)
			if err != nil {
				return err
			}
			b, err := protocol.Encode(t, msg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(b))
			return nil
		},
	}
}

func newDecodeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex>...",
		Short: "Decode hex bytes into messages",
		Long: `Arguments are concatenated and fed through the frame buffer; every
complete frame is printed on its own line. Input without any complete frame
is decoded as a bare payload span.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := opts.table()
			if err != nil {
				return err
			}
			raw, err := parseHex(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, msg := range decodeBytes(t, raw) {
				fmt.Fprintln(out, msg.String())
			}
			return nil
		},
	}
}

func parseHex(args []string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "0x", "", "0X", "").Replace(strings.Join(args, ""))
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("decode: invalid hex: %w", err)
	}
	return b, nil
}

func decodeBytes(t *codes.Table, raw []byte) []protocol.Message {
	buf := frame.NewBuffer(t, frame.WithCeiling(len(raw)+1))
	buf.Feed(raw)
	msgs := buf.Drain()
	if len(msgs) == 0 {
		return []protocol.Message{protocol.DecodeSpan(t, raw)}
	}
	return msgs
}
