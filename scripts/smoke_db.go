//go:build integration
// +build integration

package scripts

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/saturnpm/saturn/saturn/orchestrator/adapters"
	"github.com/saturnpm/saturn/saturn/store"
	"github.com/saturnpm/saturn/saturn/tools"
)

func must(err error, msg string) {
	if err != nil {
		log.Fatalf("%s: %v", msg, err)
	}
}

// RunSmokeDB exercises the embedded database end to end: migrations, seed
// data, tool queries, and the thread snapshot table.
func RunSmokeDB() {
	fmt.Println("Smoke test: embedded libsql database")
	tmp := "./smoke.db"
	defer os.Remove(tmp)

	db, err := store.Open(tmp, true)
	must(err, "open")
	defer db.Close()

	var v int
	must(db.QueryRow("SELECT 1").Scan(&v), "basic SELECT")
	fmt.Println("OK: basic SQL")

	var n int
	must(db.QueryRow("SELECT COUNT(*) FROM Tasks").Scan(&n), "seed count")
	if n != 15 {
		log.Fatalf("expected 15 seeded tasks, got %d", n)
	}
	fmt.Println("OK: seed data")

	ctx := context.Background()
	registry := tools.DefaultRegistry(db)
	result, _, ok := registry.Execute(ctx, "get_projects", nil)
	if !ok || result == "" {
		log.Fatalf("get_projects returned no data")
	}
	fmt.Println("OK: tool query")

	threads := adapters.NewLibSQLThreadStore(db)
	must(threads.Save(ctx, "smoke", []byte(`{"messages":[]}`)), "thread save")
	if _, found, err := threads.Load(ctx, "smoke"); err != nil || !found {
		log.Fatalf("thread load failed: found=%v err=%v", found, err)
	}
	fmt.Println("OK: thread snapshots")

	fmt.Println("Smoke test passed")
}
