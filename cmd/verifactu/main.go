package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/jhoicas/Verifactu-api/cmd/verifactu/cmd"
)

func main() {
	// .env opcional con VERIFACTU_ENVIRONMENT y VERIFACTU_CERT_PATH.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
