package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/chproxy/pkg/cli"
	"mercator-hq/chproxy/pkg/config"
	"mercator-hq/chproxy/pkg/control"
)

var ctlFlags struct {
	addr    string
	timeout time.Duration
}

var ctlCmd = &cobra.Command{
	Use:   "ctl <command...>",
	Short: "Send a command to a running proxy",
	Long: `Send one datagram to the UDP control socket of a running proxy and print
the acknowledgement.

Commands:
  change state   toggle between RECORD and REPLAY
  show db        log the transcript on the proxy side
  stop           stop the proxy

Examples:
  chproxy ctl change state
  chproxy ctl --addr 10.0.0.5:8766 show db`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCtl,
}

func init() {
	rootCmd.AddCommand(ctlCmd)

	defaultAddr := net.JoinHostPort("localhost", strconv.Itoa(config.DefaultUDPControlPort))
	ctlCmd.Flags().StringVar(&ctlFlags.addr, "addr", defaultAddr, "control socket address")
	ctlCmd.Flags().DurationVar(&ctlFlags.timeout, "timeout", control.DefaultTimeout, "time to wait for the acknowledgement")
}

func runCtl(cmd *cobra.Command, args []string) error {
	command := strings.Join(args, " ")
	if len(command) > control.MaxDatagramSize {
		return cli.NewConfigError("command", fmt.Sprintf("longer than %d bytes", control.MaxDatagramSize))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), ctlFlags.timeout)
	defer cancel()

	reply, err := control.Send(ctx, ctlFlags.addr, command)
	if err != nil {
		return cli.NewCommandError("ctl", err)
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), reply)
	return err
}
