// Package cmd implementa la CLI verifactu: URL y código QR tributario, cálculo de huellas y
// diagnóstico del certificado cliente y emisión de tokens para la API.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	environment  string
)

var rootCmd = &cobra.Command{
	Use:   "verifactu",
	Short: "Utilidades VERI*FACTU (AEAT)",
	Long: `verifactu agrupa utilidades locales del sistema VERI*FACTU.

Examples:
  # URL de cotejo del QR tributario
  verifactu qr --nif 89890001K --serie 12345678-G33 --fecha 01-09-2024 --importe 241.4

  # Imagen PNG del QR
  verifactu qr --nif 89890001K --serie A1 --fecha 01-09-2024 --importe 10 --output png -o qr.png

  # Huella de un registro de alta
  verifactu huella --nif 89890001K --serie F2024-001 --fecha 01-09-2024 --tipo F1 \
    --cuota 21 --importe 121 --timestamp 2024-09-01T10:00:00+02:00

  # Certificado cliente
  verifactu cert check --cert cert.p12 --password secreto

  # Token JWT de solo consulta para la API (JWT_SECRET en el entorno)
  verifactu token --client erp-1 --role consulta`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute ejecuta el comando raíz.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Salida detallada en stderr")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "Formato de salida (text, json)")
	rootCmd.PersistentFlags().StringVar(&environment, "env", "", "Entorno AEAT: test o production (env: VERIFACTU_ENVIRONMENT)")

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if environment == "" {
		environment = os.Getenv("VERIFACTU_ENVIRONMENT")
	}
	if environment == "" {
		environment = "test"
	}
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// emit escribe v como JSON con --format json, o text en otro caso.
func emit(w io.Writer, v any, text string) error {
	if outputFormat == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
