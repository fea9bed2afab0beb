package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"tickstore/internal/config"
	"tickstore/internal/database"
	"tickstore/internal/engine"
)

func main() {
	cfg := config.Load()
	opts := engine.OptionsFromConfig(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if !database.StoreExists(opts.Store) {
		fmt.Println("⚠️ Store does not exist yet, nothing to audit.")
		return
	}
	db, err := database.Open(ctx, opts.Store)
	if err != nil {
		log.Fatalf("❌ Integrity Check Failed: store connection error: %v", err)
	}
	defer db.Close()

	fmt.Println("🔍 Starting Mirror Integrity Audit...")
	audits, err := engine.AuditMirror(ctx, db, opts.MirrorDir)
	if err != nil {
		log.Fatalf("❌ Failed to audit mirror: %v", err)
	}

	missing := 0
	for _, a := range audits {
		if n := a.Missing(); n > 0 {
			fmt.Printf("🚨 MIRROR GAP: %s has %d rows, store has %d\n", a.File, a.MirrorRows, a.StoreRows)
			missing += n
		}
	}

	status := "PASS"
	if missing > 0 {
		status = fmt.Sprintf("FAIL (%d rows missing from mirror)", missing)
	}
	fmt.Printf("[%s] Integrity Check: %s | Checked %d files\n", time.Now().Format(time.RFC3339), status, len(audits))

	if missing > 0 {
		os.Exit(1)
	}
}
