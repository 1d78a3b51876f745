package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tagdb/tagdb/pkg/metaindex"
	"github.com/tagdb/tagdb/pkg/types"
)

var objectCmd = &cobra.Command{
	Use:   "object",
	Short: "Inspect stored objects",
}

var objectGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print an object's blob to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg, dataNamespace(cfg))
		if err != nil {
			return err
		}
		defer store.Close()

		data, ok, err := store.Get(context.Background(), key)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("object %d not found", key)
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var objectHeadCmd = &cobra.Command{
	Use:   "head <key>",
	Short: "Print an object's tag map",
	Long: `Print the tag map the metadata index holds for one object, including
reserved tags. Requires --collection to locate the right index file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}
		collection, _ := cmd.Flags().GetString("collection")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		indexes := metaindex.NewSQLiteFactory(cfg.DataDir)
		defer indexes.Close()

		idx, err := indexes.Get(context.Background(), collection)
		if err != nil {
			return err
		}
		meta, ok, err := idx.Get(context.Background(), key)
		if err != nil {
			return err
		}
		if !ok || !types.TagMap(meta).IsCollection(collection) {
			return fmt.Errorf("object %d not found in collection %q", key, collection)
		}

		names := make([]string, 0, len(meta))
		for name := range meta {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s=%s\n", name, meta[name])
		}
		return nil
	},
}

var objectKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Scan every stored object key",
	RunE: func(cmd *cobra.Command, args []string) error {
		reverse, _ := cmd.Flags().GetBool("reverse")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg, dataNamespace(cfg))
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		scan := store.Keys
		if reverse {
			scan = store.Rev
		}
		records, err := scan(ctx)
		if err != nil {
			return err
		}

		for rec := range records {
			line := strconv.FormatUint(uint64(rec.Key), 10)
			if rec.Timestamp != nil {
				line += fmt.Sprintf("\tts=%d", *rec.Timestamp)
			}
			if rec.Size != nil {
				line += fmt.Sprintf("\tsize=%d", *rec.Size)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	objectHeadCmd.Flags().String("collection", "", "Collection the object belongs to (required)")
	_ = objectHeadCmd.MarkFlagRequired("collection")
	objectKeysCmd.Flags().Bool("reverse", false, "Scan from the newest key backward")

	objectCmd.AddCommand(objectGetCmd)
	objectCmd.AddCommand(objectHeadCmd)
	objectCmd.AddCommand(objectKeysCmd)
}

func parseKey(raw string) (uint32, error) {
	key, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid key %q: %w", raw, err)
	}
	return uint32(key), nil
}
