package cmd

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jhoicas/Verifactu-api/internal/infrastructure/aeat"
	"github.com/jhoicas/Verifactu-api/internal/infrastructure/qr"
)

var (
	qrNIF     string
	qrSerie   string
	qrFecha   string
	qrImporte string
	qrNoVF    bool
	qrOutput  string
	qrFile    string
	qrSize    int
	qrEmisor  string
)

var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "Genera la URL de cotejo o la imagen del QR tributario",
	Long: `Genera la URL de cotejo de la AEAT para una factura y, opcionalmente, su imagen.

Salidas (--output):
  url     URL de cotejo (por defecto)
  png     imagen PNG
  svg     imagen SVG
  base64  data URI PNG
  pdf     hoja A4 con el QR y los datos de la factura`,
	Args: cobra.NoArgs,
	RunE: runQR,
}

func init() {
	rootCmd.AddCommand(qrCmd)

	qrCmd.Flags().StringVar(&qrNIF, "nif", "", "NIF del emisor")
	qrCmd.Flags().StringVar(&qrSerie, "serie", "", "Número de serie de la factura")
	qrCmd.Flags().StringVar(&qrFecha, "fecha", "", "Fecha de expedición DD-MM-YYYY")
	qrCmd.Flags().StringVar(&qrImporte, "importe", "", "Importe total")
	qrCmd.Flags().BoolVar(&qrNoVF, "no-verifactu", false, "URL para sistemas no VERI*FACTU")
	qrCmd.Flags().StringVar(&qrOutput, "output", "url", "Salida: url, png, svg, base64, pdf")
	qrCmd.Flags().StringVarP(&qrFile, "out", "o", "", "Archivo de salida (stdout si se omite)")
	qrCmd.Flags().IntVar(&qrSize, "size", qr.DefaultSize, "Tamaño en píxeles")
	qrCmd.Flags().StringVar(&qrEmisor, "emisor", "", "Nombre del emisor impreso en el PDF")
	for _, f := range []string{"nif", "serie", "fecha", "importe"} {
		_ = qrCmd.MarkFlagRequired(f)
	}
}

func runQR(cmd *cobra.Command, _ []string) error {
	env, err := aeat.ParseEnvironment(environment)
	if err != nil {
		return err
	}
	importe, err := decimal.NewFromString(qrImporte)
	if err != nil {
		return fmt.Errorf("importe %q: %w", qrImporte, err)
	}
	data := qr.Data{NIF: qrNIF, NumSerie: qrSerie, Fecha: qrFecha, Importe: importe}
	isTest := env == aeat.EnvTest
	url, err := data.URL(!qrNoVF, isTest)
	if err != nil {
		return err
	}
	printVerbose("entorno=%s url=%s\n", env, url)

	var out []byte
	switch qrOutput {
	case "url":
		return emit(cmd.OutOrStdout(), map[string]string{"url": url}, url)
	case "png":
		out, err = qr.RenderPNG(url, qrSize)
	case "svg":
		var svg string
		svg, err = qr.RenderSVG(url, qrSize)
		out = []byte(svg)
	case "base64":
		var uri string
		uri, err = qr.DataURI(url, qrSize)
		out = []byte(uri + "\n")
	case "pdf":
		out, err = qr.RenderPDF(qr.Stamp{Data: data, Verifactu: !qrNoVF, IsTest: isTest, Emisor: qrEmisor})
	default:
		return fmt.Errorf("salida desconocida %q (url, png, svg, base64, pdf)", qrOutput)
	}
	if err != nil {
		return err
	}
	if qrFile == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(qrFile, out, 0o644); err != nil {
		return err
	}
	printVerbose("escrito %s (%d bytes)\n", qrFile, len(out))
	return nil
}
