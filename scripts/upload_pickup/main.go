// Command upload_pickup copies local EWC Wales files into the configured
// pickup area so an import run can be exercised end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/noah-isme/trs-ewc-import/pkg/config"
	"github.com/noah-isme/trs-ewc-import/pkg/storage"
)

func main() {
	var (
		prefix  string
		timeout time.Duration
		list    bool
	)
	flag.StringVar(&prefix, "prefix", "", "Pickup prefix, defaults to EWC_PICKUP_PREFIX")
	flag.DurationVar(&timeout, "timeout", time.Minute, "Overall timeout")
	flag.BoolVar(&list, "list", false, "List the pickup area after uploading")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if prefix == "" {
		prefix = cfg.EWC.PickupPrefix
	}

	files, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	uploaded := 0
	for _, path := range flag.Args() {
		if err := upload(ctx, files, cfg.EWC.PickupContainer, prefix, path); err != nil {
			log.Printf("skip %s: %v", path, err)
			continue
		}
		uploaded++
	}
	fmt.Printf("Uploaded %d of %d files to %s/%s\n", uploaded, flag.NArg(), cfg.EWC.PickupContainer, prefix)

	if list {
		objects, err := files.List(ctx, cfg.EWC.PickupContainer, prefix)
		if err != nil {
			log.Fatalf("failed to list pickup area: %v", err)
		}
		for _, obj := range objects {
			fmt.Printf("%-60s %8d %s\n", obj.Key, obj.Size, obj.LastModified.Format(time.RFC3339))
		}
	}

	if uploaded < flag.NArg() {
		os.Exit(1)
	}
}

func upload(ctx context.Context, files storage.FileStore, container, prefix, path string) error {
	name := filepath.Base(path)
	upper := strings.ToUpper(name)
	if !strings.HasPrefix(upper, "IND") && !strings.HasPrefix(upper, "QTS") {
		log.Printf("warning: %s will not be recognised by the importer", name)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	key := strings.TrimSuffix(prefix, "/") + "/" + name
	if prefix == "" {
		key = name
	}
	return files.Put(ctx, container, key, f)
}
