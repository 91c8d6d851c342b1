package main

import (
	"gw-ledger/internal/app"
	"log"
)

// @title           Ledger & Fraud Detection API
// @version         1.0
// @description     API для управления кошельком, историей операций и фрод-мониторингом

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app, err := app.NewApp()
	if err != nil {
		log.Fatalf("Ошибка создания приложения: %v", err)
	}

	app.BuildAuthLayer()

	if err := app.BuildAlertLayer(); err != nil {
		log.Fatalf("Ошибка сборки слоя alerts: %v", err)
	}
	if err := app.BuildLedgerLayer(); err != nil {
		log.Fatalf("Ошибка сборки слоя ledger: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("Ошибка при работе приложения: %v", err)
	}
}
