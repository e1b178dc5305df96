package main

import (
	"os"

	"github.com/tucnak/climax"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = ""

func getVersion() string {
	if version == "" {
		return "dev"
	}
	return version
}

func main() {
	cli := climax.New("nwdb")
	cli.Brief = "New World Aeternum database client"
	cli.Version = getVersion()

	cli.AddCommand(climax.Command{
		Name:  "search",
		Brief: "Search the item catalog by name",
		Usage: `search <query> [--ranked] [--limit <n>]`,
		Help:  `Searches item names (prefix matches first). --ranked orders matches by artifact, tier and gear score as detail pages do.`,
		Flags: withCommonFlags(
			climax.Flag{
				Name:     "ranked",
				Short:    "r",
				Usage:    `--ranked`,
				Help:     `Use the detailed ranking (artifacts, tier, gear score)`,
				Variable: false,
			},
			limitFlag,
		),
		Handle: handleSearch,
	})

	cli.AddCommand(climax.Command{
		Name:   "entity",
		Brief:  "Fetch a single entity",
		Usage:  `entity <type> <id>`,
		Help:   `Fetches /db/<type>/<id>.json and prints it as returned, or {"error": "..."} on failure.`,
		Flags:  withCommonFlags(),
		Handle: handleEntity,
	})

	cli.AddCommand(climax.Command{
		Name:   "item",
		Brief:  "Fetch an item",
		Usage:  `item <id>`,
		Flags:  withCommonFlags(),
		Handle: handleTypedEntity("item"),
	})

	cli.AddCommand(climax.Command{
		Name:   "perk",
		Brief:  "Fetch a perk",
		Usage:  `perk <id>`,
		Flags:  withCommonFlags(),
		Handle: handleTypedEntity("perk"),
	})

	cli.AddCommand(climax.Command{
		Name:   "perks",
		Brief:  "List or search perks available to an item type",
		Usage:  `perks <item-type> [query] [--limit <n>]`,
		Flags:  withCommonFlags(limitFlag),
		Handle: handlePerks,
	})

	cli.AddCommand(climax.Command{
		Name:   "perk-items",
		Brief:  "Summarize the items that grant a perk",
		Usage:  `perk-items <perk-id> [--json]`,
		Help:   `Shows the first items granting the perk and the exact number of items across all pages.`,
		Flags:  withCommonFlags(jsonFlag),
		Handle: handlePerkItems,
	})

	cli.AddCommand(climax.Command{
		Name:   "objectives",
		Brief:  "Show the perk objectives of an artifact",
		Usage:  `objectives <item-id> [--json]`,
		Flags:  withCommonFlags(jsonFlag),
		Handle: handleObjectives,
	})

	cli.AddCommand(climax.Command{
		Name:  "serve",
		Brief: "Serve the JSON API",
		Usage: `serve [--listen <addr>]`,
		Flags: withCommonFlags(climax.Flag{
			Name:     "listen",
			Short:    "l",
			Usage:    `--listen <addr>`,
			Help:     `Address to listen on (default: :8080)`,
			Variable: true,
		}),
		Handle: handleServe,
	})

	cli.AddCommand(climax.Command{
		Name:   "cache",
		Brief:  "Inspect or maintain the cache",
		Usage:  `cache <stats|clean|clear|refresh> [--json]`,
		Help:   `Useful with the sqlite and redis providers, whose contents outlive a single run. refresh reloads the search catalog.`,
		Flags:  withCommonFlags(jsonFlag),
		Handle: handleCache,
	})

	os.Exit(cli.Run())
}

var limitFlag = climax.Flag{
	Name:     "limit",
	Short:    "n",
	Usage:    `--limit <n>`,
	Help:     `Maximum number of results (capped per command)`,
	Variable: true,
}

var jsonFlag = climax.Flag{
	Name:     "json",
	Short:    "j",
	Usage:    `--json`,
	Help:     `Print JSON instead of a human summary`,
	Variable: false,
}

// withCommonFlags appends the flags every command accepts
func withCommonFlags(flags ...climax.Flag) []climax.Flag {
	return append(flags,
		climax.Flag{
			Name:     "config",
			Short:    "C",
			Usage:    `--config <file>`,
			Help:     `YAML configuration file (NWDB_* environment variables override it)`,
			Variable: true,
		},
		climax.Flag{
			Name:     "cache",
			Short:    "c",
			Usage:    `--cache <provider>`,
			Help:     `Cache provider to use: memory, sqlite or redis (default: memory)`,
			Variable: true,
		},
		climax.Flag{
			Name:     "output",
			Short:    "o",
			Usage:    `--output <file>`,
			Help:     `Write results to a file instead of stdout`,
			Variable: true,
		},
		climax.Flag{
			Name:     "pretty",
			Short:    "p",
			Usage:    `--pretty`,
			Help:     `Indent JSON output (default when stdout is a terminal)`,
			Variable: false,
		},
		climax.Flag{
			Name:     "verbose",
			Short:    "v",
			Usage:    `--verbose`,
			Help:     `Enable verbose logging for debugging (shows API calls, pagination and cache operations)`,
			Variable: false,
		},
	)
}
