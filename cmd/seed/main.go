// Package main seeds a Supabase project with starter catalog and
// content rows for local development.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/aim840912/haode-api/supabase/client"
)

type row = map[string]any

func main() {
	envFile := flag.String("env", ".env", "Path to .env with SUPABASE_URL and service role key")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Fatalf("load env (%s): %v", *envFile, err)
	}

	url := os.Getenv("SUPABASE_URL")
	key := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	if url == "" || key == "" {
		log.Fatal("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required")
	}

	sb, err := client.New(client.Config{URL: url, APIKey: key})
	if err != nil {
		log.Fatalf("supabase client: %v", err)
	}

	ctx := context.Background()

	insert(ctx, sb, "products", []row{
		{"name": "Red Plum Preserves", "description": "Small-batch plum preserves from the hillside orchard.", "price": 180, "category": "processed", "inventory": 40, "active": true},
		{"name": "High Mountain Tea", "description": "Hand-picked spring harvest oolong.", "price": 600, "category": "tea", "inventory": 25, "active": true},
		{"name": "Dried Daylily", "description": "Sun-dried daylily buds for soup.", "price": 150, "category": "processed", "inventory": 60, "active": true},
	})

	insert(ctx, sb, "locations", []row{
		{"name": "Haode Farm", "address": "No. 12, Mountain Rd, Meishan", "phone": "05-2501234", "hours": "08:00-17:00", "latitude": 23.5652, "longitude": 120.6841, "is_main": true},
		{"name": "Weekend Market Stall", "address": "Cultural Park, Chiayi", "hours": "Sat-Sun 09:00-15:00", "is_main": false},
	})

	insert(ctx, sb, "culture_items", []row{
		{"title": "Four Generations of Plum Farming", "description": "How the orchard passed from great-grandfather to today.", "category": "history"},
		{"title": "Traditional Sun-Drying", "description": "The courtyard racks still dry every daylily harvest.", "category": "craft"},
	})

	insert(ctx, sb, "farm_tour_activities", []row{
		{"name": "Plum Picking", "description": "Pick your own plums in the upper orchard.", "start_month": 4, "end_month": 6, "price": 250, "capacity": 30, "active": true},
		{"name": "Tea Tasting Walk", "description": "Walk the tea terraces and taste three harvests.", "start_month": 1, "end_month": 12, "price": 400, "capacity": 12, "active": true},
	})

	log.Println("seed complete")
}

func insert(ctx context.Context, sb *client.Client, table string, rows []row) {
	for _, r := range rows {
		resp, err := sb.From(table).ExecuteInsert(ctx, r)
		if err != nil {
			log.Fatalf("insert into %s: %v", table, err)
		}
		if err := resp.Error(); err != nil {
			log.Fatalf("insert into %s: %v", table, err)
		}
	}
	log.Printf("seeded %d rows into %s", len(rows), table)
}
