package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/annotate/internal/config"
)

const (
	sentinelStart = "# annotate:start"
	sentinelEnd   = "# annotate:end"
)

// initCommand writes (or updates) a commented starter block in an
// annotate.toml file.
func (a *app) initCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a starter " + config.DefaultFile,
		Long: `Write a commented starter configuration block. The block is wrapped in
sentinel comments so it can be updated in place on subsequent runs without
touching surrounding settings. Creates the file if it does not exist.

PATH defaults to ./` + config.DefaultFile + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			section := generateSection()

			// --dry-run with no path: just print the section itself.
			if dryRun && len(args) == 0 {
				_, _ = fmt.Fprintln(a.stdout, section)
				return nil
			}

			path := config.DefaultFile
			if len(args) > 0 {
				path = args[0]
			}

			existing, _ := os.ReadFile(path)
			updated := applySection(string(existing), section)

			if dryRun {
				_, _ = fmt.Fprint(a.stdout, updated)
				return nil
			}

			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			_, _ = fmt.Fprintf(a.stderr, "wrote annotate section to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

// generateSection returns the sentinel-wrapped starter block. Every setting
// is commented out, so the block alone decodes to the defaults.
func generateSection() string {
	body := `# Settings for annotate. Uncomment to override the defaults.
# Run "annotate --help" for the available commands.

# Load stock metadata types on first use instead of registering them all.
# autoload = false

# Suffix appended to class names derived from tag names:
# @not-empty resolves to Not_EmptyAnnotation.
# suffix = "Annotation"

# Namespace prepended to derived class names.
# namespace = ""

# [cache]
# backend = "file"            # file, sqlite, memory or none
# path = ".annotate-cache"    # directory (file) or database (sqlite)
# seed = ""                   # change to invalidate every entry

# [registry]
# Map tag names to class names, or disable a tag with false.
# email = "app\\validation\\EmailAnnotation"
# todo = false

# [discover]
# exclude = ["tests/**", "**/*.inc"]
# max_file_size = 1000000

# [watch]
# debounce = "200ms"`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
