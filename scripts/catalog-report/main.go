// catalog-report prints read-side views of the star catalog: objects ranked
// by a numeric criterion, the criteria available per object type, the stars
// placed in a constellation, the members of a spectral class, and the change
// history of a single object.
//
// Usage:
//
//	go run ./scripts/catalog-report top "Apparent magnitude" [-asc] [-limit 10]
//	go run ./scripts/catalog-report criteria
//	go run ./scripts/catalog-report constellation Orion
//	go run ./scripts/catalog-report spectral G
//	go run ./scripts/catalog-report history Gaia-12345
//
// Database connection: Uses standard PG* environment variables
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/skyatlas/starcat/pkg/database"
	"github.com/skyatlas/starcat/pkg/models"
	"github.com/skyatlas/starcat/pkg/repositories"
)

func main() {
	limit := flag.Int("limit", 10, "Maximum rows for ranked listings")
	asc := flag.Bool("asc", false, "Rank ascending (lowest value first, e.g. brightest magnitudes)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{URL: buildConnString()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	queries := repositories.NewQueryRepository(db)

	switch args[0] {
	case "top":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "Usage: %s top <criterion-name> [-asc] [-limit n]\n", os.Args[0])
			os.Exit(1)
		}
		err = printTop(ctx, queries, args[1], *asc, *limit)
	case "criteria":
		err = printCriteria(ctx, queries)
	case "constellation":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "Usage: %s constellation <name>\n", os.Args[0])
			os.Exit(1)
		}
		err = printConstellation(ctx, queries, args[1])
	case "spectral":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "Usage: %s spectral <class>\n", os.Args[0])
			os.Exit(1)
		}
		err = printSpectralClass(ctx, queries, args[1])
	case "history":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "Usage: %s history <object-name>\n", os.Args[0])
			os.Exit(1)
		}
		err = printHistory(ctx, db, args[1])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [args]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nCommands:\n")
	fmt.Fprintf(os.Stderr, "  top <criterion> [-asc] [-limit n]  Objects ranked by a numeric criterion\n")
	fmt.Fprintf(os.Stderr, "  criteria                           Criteria grouped by object type\n")
	fmt.Fprintf(os.Stderr, "  constellation <name>               Stars placed in a constellation\n")
	fmt.Fprintf(os.Stderr, "  spectral <class>                   Members of a spectral class (O B A F G K M)\n")
	fmt.Fprintf(os.Stderr, "  history <object-name>              Change history of one object\n")
}

func printTop(ctx context.Context, queries repositories.QueryRepository, criterion string, asc bool, limit int) error {
	ranked, err := queries.TopObjectsByCriterion(ctx, criterion, asc, limit)
	if err != nil {
		return err
	}

	direction := "highest"
	if asc {
		direction = "lowest"
	}
	fmt.Printf("Top %d objects by %s (%s first):\n", limit, criterion, direction)
	for i, ov := range ranked {
		fmt.Printf("%3d. %-32s %s\n", i+1, ov.ObjectName, ov.Value.String())
	}
	if len(ranked) == 0 {
		fmt.Println("  (no objects carry this criterion)")
	}
	return nil
}

func printCriteria(ctx context.Context, queries repositories.QueryRepository) error {
	listing, err := queries.CriteriaByType(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%-12s %-26s %s\n", "TYPE", "CRITERION", "UNIT")
	for _, row := range listing {
		typeName := row.ObjectType
		if typeName == "" {
			typeName = "(all)"
		}
		unit := row.Unit
		if unit == "" {
			unit = "-"
		}
		fmt.Printf("%-12s %-26s %s\n", typeName, row.Criterion, unit)
	}
	return nil
}

func printConstellation(ctx context.Context, queries repositories.QueryRepository, name string) error {
	stars, err := queries.StarsInConstellation(ctx, name)
	if err != nil {
		return err
	}

	fmt.Printf("%d stars in %s:\n", len(stars), name)
	for _, s := range stars {
		fmt.Printf("  %-32s %s\n", s.ObjectName, s.Designation)
	}
	return nil
}

func printSpectralClass(ctx context.Context, queries repositories.QueryRepository, class string) error {
	members, err := queries.ObjectsBySpectralClass(ctx, class)
	if err != nil {
		return err
	}

	fmt.Printf("%d objects of spectral class %s:\n", len(members), class)
	for _, m := range members {
		teff := "-"
		if m.EffectiveTemperature != nil {
			teff = m.EffectiveTemperature.String() + " K"
		}
		fmt.Printf("  %-32s %s\n", m.ObjectName, teff)
	}
	return nil
}

func printHistory(ctx context.Context, db *database.DB, objectName string) error {
	objects := repositories.NewObjectRepository(db)
	history := repositories.NewHistoryRepository(db)

	obj, err := objects.GetByName(ctx, objectName)
	if err != nil {
		return fmt.Errorf("object %q: %w", objectName, err)
	}

	entries, err := history.ListByObject(ctx, obj.ID)
	if err != nil {
		return err
	}

	fmt.Printf("%d changes recorded for %s:\n", len(entries), objectName)
	for _, entry := range entries {
		fmt.Printf("\n%s\n", entry.ChangedAt.Format(time.RFC3339))
		printChanges(entry.OldData, entry.NewData)
	}
	return nil
}

// printChanges prints the fields whose value differs between the snapshots.
func printChanges(oldData, newData models.Snapshot) {
	for _, key := range []string{"object_name", "right_ascension", "declination"} {
		if oldData[key] != newData[key] {
			fmt.Printf("    %-24s %v -> %v\n", key, oldData[key], newData[key])
		}
	}

	oldCriteria, _ := oldData["criteria"].(map[string]any)
	newCriteria, _ := newData["criteria"].(map[string]any)
	for name, newVal := range newCriteria {
		oldVal, ok := oldCriteria[name]
		if ok && oldVal == newVal {
			continue
		}
		old := "-"
		if ok {
			old = fmt.Sprint(oldVal)
		}
		fmt.Printf("    %-24s %s -> %v\n", name, old, newVal)
	}
}

func buildConnString() string {
	host := getEnvOrDefault("PGHOST", "localhost")
	port := getEnvOrDefault("PGPORT", "5432")
	user := getEnvOrDefault("PGUSER", "starcat")
	password := os.Getenv("PGPASSWORD")
	dbname := getEnvOrDefault("PGDATABASE", "starcat")

	connStr := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		host, port, user, dbname)
	if password != "" {
		connStr += fmt.Sprintf(" password=%s", password)
	}
	return connStr
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
