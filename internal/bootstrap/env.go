package bootstrap

import (
	"log"

	"github.com/joho/godotenv"
)

// Loadenv loads a local .env file when present. Deployed instances configure
// everything through the process environment.
func Loadenv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, school-beacon will use the process environment")
	}
}
