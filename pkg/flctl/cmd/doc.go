// Package cmd implements the cobra command tree for the flctl CLI, including
// subcommands for authentication, token inspection, region routing,
// organization listing, configuration, and shell completion.
package cmd
