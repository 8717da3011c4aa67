package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Verifactu-api/internal/domain/verifactu"
	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

var (
	hNIF       string
	hSerie     string
	hFecha     string
	hTipo      string
	hCuota     string
	hImporte   string
	hAnterior  string
	hTimestamp string
	hAnulacion bool
	hTimezone  string
)

var huellaCmd = &cobra.Command{
	Use:   "huella",
	Short: "Calcula la huella SHA-256 de un registro de alta o anulación",
	Long: `Calcula la huella de un registro y muestra la cadena que se hashea.

Sin --timestamp se usa el instante actual en la zona indicada (Europe/Madrid por defecto).
Con --anulacion se ignoran --tipo, --cuota e --importe.`,
	Args: cobra.NoArgs,
	RunE: runHuella,
}

func init() {
	rootCmd.AddCommand(huellaCmd)

	huellaCmd.Flags().StringVar(&hNIF, "nif", "", "NIF del emisor")
	huellaCmd.Flags().StringVar(&hSerie, "serie", "", "Número de serie")
	huellaCmd.Flags().StringVar(&hFecha, "fecha", "", "Fecha de expedición DD-MM-YYYY")
	huellaCmd.Flags().StringVar(&hTipo, "tipo", string(pkgvf.FacturaCompleta), "Tipo de factura (F1..R5)")
	huellaCmd.Flags().StringVar(&hCuota, "cuota", "0", "Cuota total")
	huellaCmd.Flags().StringVar(&hImporte, "importe", "0", "Importe total")
	huellaCmd.Flags().StringVar(&hAnterior, "anterior", "", "Huella del registro anterior (vacía en el primero)")
	huellaCmd.Flags().StringVar(&hTimestamp, "timestamp", "", "FechaHoraHusoGenRegistro (YYYY-MM-DDThh:mm:ss±hh:mm)")
	huellaCmd.Flags().BoolVar(&hAnulacion, "anulacion", false, "Registro de anulación")
	huellaCmd.Flags().StringVar(&hTimezone, "tz", pkgvf.DefaultTimezone, "Zona horaria si se omite --timestamp")
	for _, f := range []string{"nif", "serie", "fecha"} {
		_ = huellaCmd.MarkFlagRequired(f)
	}
}

type huellaResult struct {
	Huella                   string `json:"huella"`
	Cadena                   string `json:"cadena"`
	FechaHoraHusoGenRegistro string `json:"fecha_hora_huso_gen_registro"`
}

func runHuella(cmd *cobra.Command, _ []string) error {
	if _, err := pkgvf.ValidateTaxID(hNIF); err != nil {
		return err
	}
	if err := pkgvf.ValidateNumSerie(hSerie); err != nil {
		return err
	}
	if _, err := pkgvf.ParseFecha(hFecha); err != nil {
		return err
	}
	ts := hTimestamp
	if ts == "" {
		loc, err := pkgvf.Location(hTimezone)
		if err != nil {
			return err
		}
		ts = pkgvf.FormatTimestamp(time.Now(), loc)
	}

	calc := verifactu.NewHuellaCalculator()
	nif := pkgvf.NormalizeTaxID(hNIF)
	var res huellaResult
	res.FechaHoraHusoGenRegistro = ts
	if hAnulacion {
		p := verifactu.AnulacionHuellaParams{
			IDEmisorFacturaAnulada:        nif,
			NumSerieFacturaAnulada:        hSerie,
			FechaExpedicionFacturaAnulada: hFecha,
			HuellaAnterior:                hAnterior,
			FechaHoraHusoGenRegistro:      ts,
		}
		h, err := calc.CalculateAnulacion(p)
		if err != nil {
			return err
		}
		res.Huella, res.Cadena = h, calc.AnulacionChain(p)
	} else {
		p := verifactu.AltaHuellaParams{
			IDEmisorFactura:          nif,
			NumSerieFactura:          hSerie,
			FechaExpedicionFactura:   hFecha,
			TipoFactura:              hTipo,
			CuotaTotal:               hCuota,
			ImporteTotal:             hImporte,
			HuellaAnterior:           hAnterior,
			FechaHoraHusoGenRegistro: ts,
		}
		h, err := calc.CalculateAlta(p)
		if err != nil {
			return err
		}
		chain, _ := calc.AltaChain(p)
		res.Huella, res.Cadena = h, chain
	}
	printVerbose("cadena: %s\n", res.Cadena)
	return emit(cmd.OutOrStdout(), res, res.Huella)
}
