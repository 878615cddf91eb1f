package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdpublish <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  preview    Assemble a live preview document")
	fmt.Fprintln(w, "  build      Assemble published documents to disk")
	fmt.Fprintln(w, "  publish    Assemble a document and upload it to a target")
	fmt.Fprintln(w, "  serve      Serve a live preview that rebuilds on save")
	fmt.Fprintln(w, "  doctor     Check browser, config and system setup")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'mdpublish help <command>' for details on a specific command.")
}

func printOutputControl(w io.Writer) {
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show pipeline logs and timing")
}

// printPreviewUsage prints usage for the preview command.
func printPreviewUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdpublish preview <file.md> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Assemble a preview document with all CSS embedded and the readiness")
	fmt.Fprintln(w, "script injected. The document is written to stdout unless -o is set.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file")
	fmt.Fprintln(w, "  -t, --target <name>       Target for theme URL and CSS paths")
	fmt.Fprintln(w, "      --check               Load in headless Chrome and wait for readiness")
	fmt.Fprintln(w)
	printOutputControl(w)
}

// printBuildUsage prints usage for the build command.
func printBuildUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdpublish build <input> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Assemble published documents. Input is a markdown file or a directory;")
	fmt.Fprintln(w, "directories are walked and mirrored into the output directory.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file (.html) or directory")
	fmt.Fprintln(w, "  -t, --target <name>       Target for theme URL and CSS paths")
	fmt.Fprintln(w, "  -s, --strategy <s>        CSS strategy: embedded, linked, hybrid")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel workers (0 = auto)")
	fmt.Fprintln(w)
	printOutputControl(w)
}

// printPublishUsage prints usage for the publish command.
func printPublishUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdpublish publish <file.md> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Assemble a published document and upload it to an object store.")
	fmt.Fprintln(w, "The public URL is printed on success.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -t, --target <name>       Target name (default: defaultTarget)")
	fmt.Fprintln(w, "  -p, --path <key>          Object key (default: slug of the title)")
	fmt.Fprintln(w, "                            Placeholders: {YYYY}, {MM}, {DD}")
	fmt.Fprintln(w, "  -s, --strategy <s>        CSS strategy: embedded, linked, hybrid")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Credentials:")
	fmt.Fprintln(w, "  MDPUBLISH_ACCESS_KEY and MDPUBLISH_SECRET_KEY fill targets without keys.")
	fmt.Fprintln(w, "  A .env file in the working directory is read first.")
	fmt.Fprintln(w)
	printOutputControl(w)
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdpublish serve <file.md> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve a live preview. The document is rebuilt when the file is saved")
	fmt.Fprintln(w, "and the open page reloads it.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -l, --listen <addr>       Listen address (default: 127.0.0.1:8080)")
	fmt.Fprintln(w, "  -t, --target <name>       Target for theme URL and CSS paths")
	fmt.Fprintln(w)
	printOutputControl(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: mdpublish doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that the browser, config and temp directory are usable.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path to validate")
	fmt.Fprintln(w, "      --json                Print results as JSON")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "preview":
		printPreviewUsage(env.Stdout)
	case "build":
		printBuildUsage(env.Stdout)
	case "publish":
		printPublishUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: mdpublish version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: mdpublish help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
