package database

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq"
)

var DB *sql.DB

func InitDB(url string) {
	if url == "" {
		log.Println("⚠️ DB_URL не установлен, работа без базы данных")
		return
	}

	var err error
	DB, err = sql.Open("postgres", url)
	if err != nil {
		log.Fatalf("❌ Ошибка подключения к базе данных: %v", err)
	}

	err = DB.Ping()
	if err != nil {
		log.Fatalf("❌ База данных недоступна: %v", err)
	}

	log.Println("✓ Подключение к PostgreSQL установлено")

	// Архив завершённых дел
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS trial_results (
			case_id    TEXT PRIMARY KEY,
			claim      TEXT,
			verdict    JSONB,
			awareness  JSONB,
			judgements JSONB,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Fatalf("❌ Ошибка создания таблицы trial_results: %v", err)
	}

	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS shared_results (
			id         TEXT PRIMARY KEY,
			result     JSONB NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			expires_at TIMESTAMPTZ DEFAULT NOW() + INTERVAL '30 days'
		)
	`)
	if err != nil {
		log.Fatalf("❌ Ошибка создания таблицы shared_results: %v", err)
	}
}
