package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/computerman00/vitaelf/elf"
	"github.com/computerman00/vitaelf/internal/analysis"
	"github.com/computerman00/vitaelf/loader"
	"github.com/computerman00/vitaelf/nid"
	"github.com/computerman00/vitaelf/sdk"
)

func main() {
	dbPath := flag.String("db", "", "NID database YAML file (required)")
	sdkPath := flag.String("sdk", "", "optional SDK header with function prototypes")
	clean := flag.Bool("clean", false, "also retract code entities past the import-stub region")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-clean] [-v] -db nids.yml [-sdk header.h] executable\n", os.Args[0])
		os.Exit(2)
	}
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if err := run(flag.Arg(0), *dbPath, *sdkPath, *clean, log); err != nil {
		log.Error("injection failed", "error", err)
		os.Exit(1)
	}
}

func run(path, dbPath, sdkPath string, clean bool, log *slog.Logger) error {
	f, err := elf.Open(path)
	if err != nil {
		return err
	}
	db, err := nid.Load(dbPath)
	if err != nil {
		return err
	}
	opts := []loader.Option{loader.WithLogger(log)}
	if sdkPath != "" {
		sigs, err := sdk.Load(sdkPath)
		if err != nil {
			log.Warn("signature map unavailable, using default signatures", "error", err)
		} else {
			opts = append(opts, loader.WithSignatures(sigs))
		}
	}

	model := analysis.NewModel()
	defer model.Close()

	ld := loader.New(f, db, model, opts...)
	inject := ld.InjectSymbols
	if clean {
		inject = ld.InjectSymbolsClean
	}
	if err := inject(context.Background()); err != nil {
		return err
	}

	for _, sym := range model.Symbols() {
		fmt.Printf("%08x %-8s %s\n", sym.Addr, sym.Kind, sym.Name)
	}
	return nil
}
