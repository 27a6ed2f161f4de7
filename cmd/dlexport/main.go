// cmd/dlexport/main.go
package main

import (
	"database/sql"
	"flag"
	"log"

	_ "modernc.org/sqlite"

	"github.com/tamzrod/datalogger/internal/blockdev"
	"github.com/tamzrod/datalogger/internal/database"
	"github.com/tamzrod/datalogger/internal/stream"
)

type options struct {
	imagePath string
	pageSize  int
	slots     int
	dbPath    string
}

func main() {
	opts := parseFlags()
	if opts.imagePath == "" {
		log.Fatal("usage: dlexport -image <device.img> [-db samples.db]")
	}

	dev, err := blockdev.OpenFileReadOnly(opts.imagePath, opts.pageSize)
	if err != nil {
		log.Fatalf("open image: %v", err)
	}
	defer dev.Close()

	ps, err := stream.NewPaged(dev, stream.Options{Slots: opts.slots})
	if err != nil {
		log.Fatalf("stream: %v", err)
	}
	dm := database.New(ps, database.Options{})
	if err := dm.Load(); err != nil {
		log.Fatalf("load directory: %v", err)
	}

	db, err := sql.Open("sqlite", opts.dbPath)
	if err != nil {
		log.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	n, err := export(db, dm)
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	log.Printf("done: exported %d samples from %d files into %s", n, dm.Count(), opts.dbPath)
}

func parseFlags() options {
	var opt options
	flag.StringVar(&opt.imagePath, "image", "", "path to the device image written by datalogger")
	flag.IntVar(&opt.pageSize, "page-size", 256, "device page size in bytes")
	flag.IntVar(&opt.slots, "slots", stream.DefaultSlots, "page cache slots")
	flag.StringVar(&opt.dbPath, "db", "samples.db", "path to sqlite database file")
	flag.Parse()
	return opt
}
