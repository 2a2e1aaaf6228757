// Command catalogctl runs catalog maintenance from a shell, using the same
// configuration as the server (defaults, CONFIG_FILE, then environment).
//
// Usage:
//
//	catalogctl [--config file] [--verbose] [--timeout d] <command>
//
// Commands:
//
//	scan     Index new videos under MEDIA_DIR and print the statistics.
//	         A spinner is shown when stdout is a terminal.
//	         --cleanup reconciles afterwards, --json prints JSON,
//	         --fail-on-error exits non-zero when any file failed.
//
//	cleanup  Remove videos whose files are gone, then channels left empty.
//
//	status   Print catalog counts and every channel with its video count.
//
// catalogctl opens the SQLite catalog directly. Running it while the server
// is scanning is safe; SQLite serializes the writers.
package main
