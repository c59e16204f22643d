package main

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"agencycrm/internal/app"
)

// @title        Agency CRM API
// @version      1.0
// @description  Insurance-agency CRM: lead intake, pipeline stage transitions, reminders and reports.
func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, relying on environment")
	}
	app.Run()
}
