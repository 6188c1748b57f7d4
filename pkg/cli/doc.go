/*
Package cli provides command-line interface utilities for Callisto.

The cli package includes output formatters, signal handling, and the exit
code mapping used by the callisto command.

Output Formatting:

Commands that print results support text and JSON output:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, snapshot); err != nil {
		return err
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown

Exit Codes:

The binary distinguishes usage mistakes from runtime failures:

	os.Exit(cli.ExitCode(err)) // 0 ok, 1 runtime error, 2 usage/config error
*/
package cli
