package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/openlab-dev/roble-go/pkg/idx"
	"github.com/openlab-dev/roble-go/pkg/roble"
)

// tableFlag returns a fresh --table flag so subcommands do not share
// parse state.
func tableFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "table",
		Aliases:  []string{"t"},
		Usage:    "Table name",
		Required: true,
	}
}

// DataCommand returns the data subcommand group for table records.
func DataCommand() *cli.Command {
	return &cli.Command{
		Name:  "data",
		Usage: "Read and modify table records",
		Subcommands: []*cli.Command{
			{
				Name:  "read",
				Usage: "List records, optionally filtered by column values",
				Flags: []cli.Flag{
					tableFlag(),
					&cli.StringSliceFlag{
						Name:    "filter",
						Aliases: []string{"f"},
						Usage:   "Equality filter as COLUMN=VALUE (repeatable)",
					},
				},
				Action: dataRead,
			},
			{
				Name:  "insert",
				Usage: "Insert a record built from --set pairs",
				Flags: []cli.Flag{
					tableFlag(),
					&cli.StringSliceFlag{
						Name:    "set",
						Aliases: []string{"s"},
						Usage:   "Column value as COLUMN=VALUE (repeatable)",
					},
				},
				Action: dataInsert,
			},
			{
				Name:      "update",
				Usage:     "Update a record by id",
				ArgsUsage: "RECORD_ID",
				Flags: []cli.Flag{
					tableFlag(),
					&cli.StringSliceFlag{
						Name:    "set",
						Aliases: []string{"s"},
						Usage:   "Column value as COLUMN=VALUE (repeatable)",
					},
				},
				Action: dataUpdate,
			},
			{
				Name:      "delete",
				Usage:     "Delete a record by id",
				ArgsUsage: "RECORD_ID",
				Flags: []cli.Flag{
					tableFlag(),
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip confirmation",
					},
				},
				Action: dataDelete,
			},
			{
				Name:  "purge",
				Usage: "Delete every record in a table",
				Flags: []cli.Flag{
					tableFlag(),
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip confirmation",
					},
				},
				Action: dataPurge,
			},
			{
				Name:  "seed",
				Usage: "Insert generated sample records",
				Flags: []cli.Flag{
					tableFlag(),
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Value:   10,
						Usage:   "Number of records to generate",
					},
				},
				Action: dataSeed,
			},
		},
	}
}

func dataRead(c *cli.Context) error {
	ctx, client, cancel, err := dataClient(c)
	if err != nil {
		return err
	}
	defer cancel()

	filters, err := parsePairs(c.StringSlice("filter"))
	if err != nil {
		return err
	}

	records, err := client.Read(ctx, c.String("table"), filters)
	if err != nil {
		return err
	}
	return render(c, recordRows(records))
}

func dataInsert(c *cli.Context) error {
	ctx, client, cancel, err := dataClient(c)
	if err != nil {
		return err
	}
	defer cancel()

	record, err := parseRecord(c.StringSlice("set"))
	if err != nil {
		return err
	}
	if len(record) == 0 {
		return fmt.Errorf("insert requires at least one --set pair")
	}

	inserted, err := client.Insert(ctx, c.String("table"), []roble.Record{record})
	if err != nil {
		return err
	}

	if len(inserted) == 0 {
		fmt.Println("Record accepted.")
		return nil
	}
	return render(c, recordRows(inserted))
}

func dataUpdate(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("record ID required")
	}

	updates, err := parseRecord(c.StringSlice("set"))
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return fmt.Errorf("update requires at least one --set pair")
	}

	ctx, client, cancel, err := dataClient(c)
	if err != nil {
		return err
	}
	defer cancel()

	if err := client.Update(ctx, c.String("table"), id, updates); err != nil {
		return err
	}

	fmt.Printf("Record %s updated.\n", id)
	return nil
}

func dataDelete(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("record ID required")
	}

	if !c.Bool("force") {
		fmt.Printf("Delete record '%s' from table '%s'? [y/N]: ", id, c.String("table"))
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "y" && confirm != "Y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	ctx, client, cancel, err := dataClient(c)
	if err != nil {
		return err
	}
	defer cancel()

	if err := client.Delete(ctx, c.String("table"), id); err != nil {
		return err
	}

	fmt.Printf("Record %s deleted.\n", id)
	return nil
}

func dataPurge(c *cli.Context) error {
	table := c.String("table")

	if !c.Bool("force") {
		fmt.Printf("This will delete all records in table '%s'. Type '%s' to confirm: ", table, table)
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != table {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	ctx, client, cancel, err := dataClient(c)
	if err != nil {
		return err
	}
	defer cancel()

	records, err := client.Read(ctx, table, nil)
	if err != nil {
		return err
	}

	deleted := 0
	for _, rec := range records {
		id, ok := rec["_id"].(string)
		if !ok || id == "" {
			continue
		}
		if err := client.Delete(ctx, table, id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		deleted++
	}

	fmt.Printf("%d records deleted from '%s'.\n", deleted, table)
	return nil
}

func dataSeed(c *cli.Context) error {
	count := c.Int("count")
	if count < 1 {
		return fmt.Errorf("count must be positive")
	}

	ctx, client, cancel, err := dataClient(c)
	if err != nil {
		return err
	}
	defer cancel()

	now := time.Now().UTC()
	records := make([]roble.Record, count)
	for i := range records {
		records[i] = roble.Record{
			"_id":        idx.New().String(),
			"seq":        i + 1,
			"created_at": now.Format(time.RFC3339),
		}
	}

	inserted, err := client.Insert(ctx, c.String("table"), records)
	if err != nil {
		return err
	}

	fmt.Printf("%d of %d records inserted into '%s'.\n", len(inserted), count, c.String("table"))
	return nil
}

// dataClient builds an authenticated client and a request context bound to
// the configured timeout.
func dataClient(c *cli.Context) (context.Context, *roble.Client, context.CancelFunc, error) {
	cfg, err := resolveConfig(c)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)

	client, err := authenticatedClient(ctx, c)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return ctx, client, cancel, nil
}

// parsePairs splits KEY=VALUE arguments into a map.
func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid pair %q, expected COLUMN=VALUE", p)
		}
		out[key] = value
	}
	return out, nil
}

// parseRecord builds a record from KEY=VALUE pairs. Values that parse as
// JSON literals keep their type, so --set age=36 sends a number and
// --set name=Ada sends a string.
func parseRecord(pairs []string) (roble.Record, error) {
	kv, err := parsePairs(pairs)
	if err != nil {
		return nil, err
	}
	if kv == nil {
		return roble.Record{}, nil
	}

	record := make(roble.Record, len(kv))
	for key, value := range kv {
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err == nil {
			record[key] = parsed
		} else {
			record[key] = value
		}
	}
	return record, nil
}
