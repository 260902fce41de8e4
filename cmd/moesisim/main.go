// Command moesisim replays a multiprocessor memory trace on a shared-bus MOESI
// cache system and prints the hit, miss and bus statistics.
package main

import (
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	Execute()
}
