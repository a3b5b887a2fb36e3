/*
Package cli provides command-line utilities shared by the ganymede
command tree.

Output Formatting:

Commands that print structured results (audit listings, verification
reports) accept a --format flag parsed by ParseFormat and render through
a Formatter:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	formatter := cli.NewFormatter(format)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Signal Handling:

Long-running commands derive their context from SetupSignalHandler so
Ctrl+C interrupts storage walks cleanly:

	ctx := cli.SetupSignalHandler()
	result, err := audit.VerifyChain(ctx, store)

Errors:

ConfigError and CommandError give command failures a stable shape for
exit handling and tests.
*/
package cli
