package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"

	"github.com/sportsedge/featurestore/internal/coordinator"
	"github.com/sportsedge/featurestore/internal/store"
	"github.com/sportsedge/featurestore/internal/types"
)

type console struct {
	coord *coordinator.Coordinator
	store *store.Store
}

func newConsole(coord *coordinator.Coordinator, st *store.Store) *console {
	return &console{coord: coord, store: st}
}

var commands = []prompt.Suggest{
	{Text: "stats", Description: "Cache, store, and coordinator counters"},
	{Text: "get", Description: "get <type> <id> - latest entity record"},
	{Text: "features", Description: "features <type> <id> - feature vector"},
	{Text: "query", Description: "query <type> [limit] - latest records by type"},
	{Text: "quality", Description: "quality [n] - recent batch quality reports"},
	{Text: "sweep", Description: "Run a retention sweep now"},
	{Text: "refresh", Description: "refresh <type> <id> - force hot refresh"},
	{Text: "ingest", Description: "ingest <file.json> - ingest a raw payload file"},
	{Text: "sql", Description: "sql <query> - raw query against the database"},
	{Text: "help", Description: "Show commands"},
	{Text: "exit", Description: "Quit"},
}

var entityTypeSuggestions = []prompt.Suggest{
	{Text: "event"},
	{Text: "participant"},
	{Text: "result"},
}

func (c *console) complete(d prompt.Document) []prompt.Suggest {
	args := strings.Fields(d.TextBeforeCursor())
	if len(args) <= 1 && !strings.HasSuffix(d.TextBeforeCursor(), " ") {
		return prompt.FilterHasPrefix(commands, d.GetWordBeforeCursor(), true)
	}
	switch args[0] {
	case "get", "features", "refresh", "query":
		if len(args) == 1 || (len(args) == 2 && !strings.HasSuffix(d.TextBeforeCursor(), " ")) {
			return prompt.FilterHasPrefix(entityTypeSuggestions, d.GetWordBeforeCursor(), true)
		}
	}
	return nil
}

func (c *console) execute(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	args := strings.Fields(line)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "exit", "quit":
		fmt.Println("bye")
		os.Exit(0)
	case "help":
		c.help()
	case "stats":
		c.showStats()
	case "get":
		c.getEntity(ctx, args[1:])
	case "features":
		c.getFeatures(ctx, args[1:])
	case "query":
		c.query(ctx, args[1:])
	case "quality":
		c.quality(ctx, args[1:])
	case "sweep":
		c.sweep(ctx)
	case "refresh":
		c.refresh(ctx, args[1:])
	case "ingest":
		c.ingest(ctx, args[1:])
	case "sql":
		c.sql(ctx, strings.TrimSpace(strings.TrimPrefix(line, "sql")))
	default:
		fmt.Printf("unknown command %q (try 'help')\n", args[0])
	}
}

func (c *console) help() {
	for _, cmd := range commands {
		fmt.Printf("  %-10s %s\n", cmd.Text, cmd.Description)
	}
}

func (c *console) showStats() {
	cs := c.coord.CacheStats()
	fmt.Println("cache:")
	fmt.Printf("  hot entries   %d\n", cs.HotEntries)
	fmt.Printf("  warm entries  %d\n", cs.WarmEntries)
	fmt.Printf("  hot hits      %d\n", cs.HotHits)
	fmt.Printf("  warm hits     %d\n", cs.WarmHits)
	fmt.Printf("  misses        %d\n", cs.Misses)
	fmt.Printf("  promotions    %d\n", cs.Promotions)
	fmt.Printf("  demotions     %d\n", cs.Demotions)
	fmt.Printf("  evictions     %d\n", cs.Evictions)
	fmt.Printf("  expired       %d\n", cs.Expired)

	ss := c.coord.StoreStats()
	fmt.Println("store:")
	fmt.Printf("  puts          %d\n", ss.Puts)
	fmt.Printf("  gets          %d\n", ss.Gets)
	fmt.Printf("  queries       %d\n", ss.Queries)
	fmt.Printf("  vector puts   %d\n", ss.VectorPuts)
	fmt.Printf("  vector gets   %d\n", ss.VectorGets)
	fmt.Printf("  stale writes  %d\n", ss.StaleRejected)
	fmt.Printf("  errors        %d\n", ss.Errors)

	co := c.coord.Stats()
	fmt.Println("coordinator:")
	fmt.Printf("  batches       %d (degraded %d, failed %d)\n",
		co.BatchesIngested, co.BatchesDegraded, co.BatchesFailed)
	fmt.Printf("  records       %d persisted, %d rejected\n",
		co.RecordsPersisted, co.RecordsRejected)
	fmt.Printf("  recomputes    %d (timeouts %d)\n", co.Recomputes, co.RecomputeTimeouts)
	fmt.Printf("  sweeps        %d\n", co.SweepsRun)
}

func parseTypeID(args []string) (types.EntityType, string, error) {
	if len(args) < 2 {
		return 0, "", fmt.Errorf("usage: <type> <id>")
	}
	et, err := types.ParseEntityType(args[0])
	if err != nil {
		return 0, "", err
	}
	return et, args[1], nil
}

func (c *console) getEntity(ctx context.Context, args []string) {
	et, id, err := parseTypeID(args)
	if err != nil {
		fmt.Println(err)
		return
	}
	record, tier, err := c.coord.GetEntity(ctx, et, id)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("%s/%s v%d (served from %s)\n", et, record.EntityID, record.Version, tier)
	fmt.Printf("  source_ts   %s\n", record.SourceTimestamp.Format(time.RFC3339))
	fmt.Printf("  ingested_at %s\n", record.IngestedAt.Format(time.RFC3339))
	fmt.Printf("  batch_id    %s\n", record.BatchID)

	fields := make([]string, 0, len(record.Payload))
	for k := range record.Payload {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	for _, k := range fields {
		fmt.Printf("  %-24s %v\n", k, record.Payload[k])
	}
}

func (c *console) getFeatures(ctx context.Context, args []string) {
	et, id, err := parseTypeID(args)
	if err != nil {
		fmt.Println(err)
		return
	}
	fv, tier, err := c.coord.GetFeatures(ctx, et, id)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("%s/%s feature set v%d, source v%d (served from %s)\n",
		et, fv.EntityID, fv.FeatureSetVersion, fv.SourceRecordVersion, tier)
	for i, name := range fv.Names {
		fmt.Printf("  %-28s %g\n", name, fv.Values[i])
	}
}

func (c *console) query(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Println("usage: query <type> [limit]")
		return
	}
	et, err := types.ParseEntityType(args[0])
	if err != nil {
		fmt.Println(err)
		return
	}
	limit := 20
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
			limit = n
		}
	}
	page, err := c.coord.Query(ctx, store.QueryFilter{EntityType: et, Limit: limit})
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for _, r := range page.Records {
		fmt.Printf("  %-32s v%-3d %s\n", r.EntityID, r.Version,
			r.SourceTimestamp.Format(time.RFC3339))
	}
	if page.NextCursor != "" {
		fmt.Printf("  ... more (cursor %s)\n", page.NextCursor)
	}
}

func (c *console) quality(ctx context.Context, args []string) {
	limit := 10
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}
	reports, err := c.coord.QualityHistory(ctx, limit)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for _, r := range reports {
		state := "accepted"
		if r.Degraded() {
			state = "DEGRADED"
		}
		fmt.Printf("  %s %s total=%d valid=%d completeness=%.3f accuracy=%.3f %s\n",
			r.GeneratedAt.Format(time.RFC3339), r.BatchID,
			r.TotalRecords, r.ValidRecords,
			r.CompletenessScore, r.AccuracyScore, state)
	}
}

func (c *console) sweep(ctx context.Context) {
	result, err := c.coord.TriggerRetentionSweep(ctx)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("swept %d entities (%d records, %d vectors) older than %s\n",
		result.EntitiesDeleted, result.RecordsDeleted, result.VectorsDeleted,
		result.Cutoff.Format(time.RFC3339))
	if result.ArchiveFile != "" {
		fmt.Printf("archived to %s\n", result.ArchiveFile)
	}
}

func (c *console) refresh(ctx context.Context, args []string) {
	et, id, err := parseTypeID(args)
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := c.coord.ForceRefresh(ctx, et, id); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("%s/%s refreshed into the hot tier\n", et, id)
}

func (c *console) ingest(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Println("usage: ingest <file.json>")
		return
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	input, err := decodeRawInput(data)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	report, err := c.coord.IngestRaw(ctx, input)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	state := "accepted"
	if report.Degraded() {
		state = "DEGRADED"
	}
	fmt.Printf("batch %s: total=%d valid=%d completeness=%.3f accuracy=%.3f %s\n",
		report.BatchID, report.TotalRecords, report.ValidRecords,
		report.CompletenessScore, report.AccuracyScore, state)
}

func (c *console) sql(ctx context.Context, query string) {
	if query == "" {
		fmt.Println("usage: sql <query>")
		return
	}
	rows, err := c.store.DB().QueryContext(ctx, query)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println(strings.Join(cols, " | "))

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	count := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		parts := make([]string, len(cols))
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			parts[i] = fmt.Sprintf("%v", v)
		}
		fmt.Println(strings.Join(parts, " | "))
		count++
	}
	if err := rows.Err(); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("(%d rows)\n", count)
}
