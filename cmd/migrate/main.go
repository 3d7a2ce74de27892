package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}
	command := os.Args[1]

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	switch command {
	case "drop":
		if err := dropTables(ctx, conn); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		fmt.Println("✅ All tables dropped successfully")

	case "up":
		if err := createTables(ctx, conn); err != nil {
			log.Fatalf("Failed to create tables: %v", err)
		}
		fmt.Println("✅ All tables created successfully")

	case "seed":
		if err := seedData(ctx, conn); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
		fmt.Println("✅ Data seeded successfully")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Usage: go run main.go [drop|up|seed]")
		os.Exit(1)
	}
}

func dropTables(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS votes CASCADE`,
		`DROP TABLE IF EXISTS options CASCADE`,
		`DROP TABLE IF EXISTS questions CASCADE`,
		`DROP TABLE IF EXISTS sessions CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("  Dropped: %s\n", query)
	}

	return nil
}

// schemaStatements creates the full schema. The question config columns are
// NOT NULL with a zero default because the repository scans them into plain
// ints; zero means "unconstrained" for the kinds that do not use a column.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY,
		pin VARCHAR(16) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'idle',
		active_index INTEGER,
		version BIGINT NOT NULL DEFAULT 0,
		show_attendees BOOLEAN NOT NULL DEFAULT false,
		percentage_display BOOLEAN NOT NULL DEFAULT true,
		keyboard_control BOOLEAN NOT NULL DEFAULT false,
		presentation_mode BOOLEAN NOT NULL DEFAULT false,
		show_results BOOLEAN NOT NULL DEFAULT false,
		countdown_until TIMESTAMPTZ,
		terminated_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// One pin may only be held by one non-terminated session at a time;
	// terminated sessions keep their pin row for the grace window.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_pin_live
		ON sessions (pin) WHERE status <> 'terminated'`,

	`CREATE TABLE IF NOT EXISTS questions (
		id UUID PRIMARY KEY,
		session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		kind VARCHAR(20) NOT NULL,
		required BOOLEAN NOT NULL DEFAULT false,
		range_start INTEGER NOT NULL DEFAULT 0,
		range_end INTEGER NOT NULL DEFAULT 0,
		range_step INTEGER NOT NULL DEFAULT 0,
		max_length INTEGER NOT NULL DEFAULT 0,
		min_selections INTEGER NOT NULL DEFAULT 0,
		max_selections INTEGER NOT NULL DEFAULT 0,
		UNIQUE (session_id, position)
	)`,

	`CREATE TABLE IF NOT EXISTS options (
		id UUID PRIMARY KEY,
		question_id UUID NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		UNIQUE (question_id, position)
	)`,

	`CREATE TABLE IF NOT EXISTS votes (
		id UUID PRIMARY KEY,
		question_id UUID NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		voter_id UUID NOT NULL,
		option_id UUID REFERENCES options(id) ON DELETE CASCADE,
		free_input TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (option_id IS NOT NULL OR free_input IS NOT NULL)
	)`,

	// A voter holds at most one vote per option.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_voter_option
		ON votes (question_id, voter_id, option_id) WHERE option_id IS NOT NULL`,

	`CREATE INDEX IF NOT EXISTS idx_votes_question ON votes (question_id)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_voter ON votes (question_id, voter_id)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_session ON questions (session_id)`,
}

func createTables(ctx context.Context, conn *pgx.Conn) error {
	for _, query := range schemaStatements {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	fmt.Println("  Created: sessions, questions, options, votes")

	return nil
}

const seedSessionStatement = `
	INSERT INTO sessions (id, pin, status, active_index, version)
	VALUES ($1, '1234', 'running', 0, 0)
	ON CONFLICT (id) DO NOTHING
`

// The repository reads question config columns as plain ints, so the seed
// writes explicit zeros rather than relying on the column defaults.
const seedQuestionStatement = `
	INSERT INTO questions (id, session_id, position, title, kind, required,
		range_start, range_end, range_step, max_length, min_selections, max_selections)
	VALUES ($1, $2, 0, 'Which topic should we cover next?', 'single_choice', false, 0, 0, 0, 0, 0, 0)
	ON CONFLICT (id) DO NOTHING
`

func seedData(ctx context.Context, conn *pgx.Conn) error {
	sessionID := "11111111-1111-1111-1111-111111111111"
	questionID := "22222222-2222-2222-2222-222222222222"

	if _, err := conn.Exec(ctx, seedSessionStatement, sessionID); err != nil {
		return fmt.Errorf("failed to seed session: %w", err)
	}

	if _, err := conn.Exec(ctx, seedQuestionStatement, questionID, sessionID); err != nil {
		return fmt.Errorf("failed to seed question: %w", err)
	}

	options := []struct {
		id   string
		text string
	}{
		{"33333333-3333-3333-3333-333333333331", "Concurrency"},
		{"33333333-3333-3333-3333-333333333332", "Generics"},
		{"33333333-3333-3333-3333-333333333333", "Profiling"},
	}
	for i, opt := range options {
		if _, err := conn.Exec(ctx, `
			INSERT INTO options (id, question_id, position, text)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING
		`, opt.id, questionID, i, opt.text); err != nil {
			return fmt.Errorf("failed to seed option: %w", err)
		}
	}

	fmt.Println("  Seeded: 1 session (pin 1234), 1 question, 3 options")
	return nil
}
