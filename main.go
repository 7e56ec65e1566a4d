package main

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"trial-viewer/cache"
	"trial-viewer/config"
	"trial-viewer/database"
	"trial-viewer/handlers"
	"trial-viewer/logger"
	"trial-viewer/services"
)

func main() {
	log.SetOutput(logger.GetWriter())
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("🚀 Запуск Trial Viewer...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("❌ Ошибка загрузки конфигурации:", err)
	}

	log.Printf("✓ Конфигурация загружена")
	log.Printf("  - Бэкенд: %s", cfg.BackendURL)
	log.Printf("  - Раундов на процесс: %d", cfg.MaxRounds)
	log.Printf("  - Порт: %s", cfg.Port)

	database.InitDB(cfg.DbUrl)
	cache.InitRedis(cfg.RedisUrl)

	registry := services.NewRegistry(cfg.BackendURL, cfg.MaxRounds)
	log.Println("✓ Реестр дел инициализирован")

	trialHandler := handlers.NewTrialHandler(registry)
	shareHandler := handlers.NewShareHandler()
	adminHandler := handlers.NewAdminHandler(cfg, registry)
	log.Println("✓ Сервисы инициализированы")

	http.HandleFunc("/api/trial/start", trialHandler.Start)
	http.HandleFunc("/api/trial/view", trialHandler.View)
	http.HandleFunc("/api/trial/watch", trialHandler.Watch)
	http.HandleFunc("/api/trial/continue", trialHandler.Continue)
	http.HandleFunc("/api/trial/judgement", trialHandler.Judgement)
	http.HandleFunc("/api/trial/prediction", trialHandler.Prediction)
	http.HandleFunc("/api/trial/close", trialHandler.CloseCase)
	http.HandleFunc("/api/health", trialHandler.Health)
	http.HandleFunc("/api/share", shareHandler.Create)
	http.HandleFunc("/api/share/", shareHandler.GetResult)
	http.HandleFunc("/s/", shareHandler.ShowPage)

	// Admin API
	http.HandleFunc("/api/admin/stats", adminHandler.AuthMiddleware(adminHandler.GetStats))
	http.HandleFunc("/api/admin/logs", adminHandler.StreamLogs)

	addr := ":" + cfg.Port
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Printf("⚖ Trial Viewer запущен на http://localhost%s\n", addr)
	fmt.Printf("📡 Бэкенд оркестратора: %s\n", cfg.BackendURL)
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("\n📝 Примеры:")
	fmt.Printf(`   curl -X POST http://localhost%s/api/trial/start -H "Content-Type: application/json" -d '{"content": "подозрительная новость"}'`+"\n", addr)
	fmt.Printf(`   curl http://localhost%s/api/trial/view?case_id=...`+"\n", addr)
	fmt.Println("\n" + strings.Repeat("=", 50) + "\n")

	log.Println("✓ Сервер готов к приему запросов...")
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal("❌ Ошибка запуска сервера:", err)
	}
}
