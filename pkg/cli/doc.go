/*
Package cli provides command-line helpers shared by the chproxy commands.

Errors:

ConfigError marks bad flags or configuration and maps to exit code 2;
every other error maps to 1:

	if err := rootCmd.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}

Output Formatting:

Commands that print a result accept --output text|json:

	format, err := cli.ParseOutputFormat(flags.output)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), info)

Signal Handling:

SIGINT and SIGTERM cancel the serving context, which stops every listener:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
