package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Verifactu-api/internal/infrastructure/aeat"
)

var (
	certPath     string
	certKeyPath  string
	certPassword string
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Diagnóstico del certificado cliente",
}

var certCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Carga el certificado y muestra titular, NIF y vigencia",
	Long: `Carga el certificado cliente (PEM, PEM combinado o PKCS#12) con las mismas reglas que
el transporte SOAP y muestra sus datos. Termina con error si no carga o ha caducado.`,
	Args: cobra.NoArgs,
	RunE: runCertCheck,
}

func init() {
	rootCmd.AddCommand(certCmd)
	certCmd.AddCommand(certCheckCmd)

	certCheckCmd.Flags().StringVar(&certPath, "cert", "", "Certificado .pem, .p12 o .pfx (env: VERIFACTU_CERT_PATH)")
	certCheckCmd.Flags().StringVar(&certKeyPath, "key", "", "Llave PEM si --cert solo contiene el certificado")
	certCheckCmd.Flags().StringVar(&certPassword, "password", "", "Contraseña del .p12 o de la llave cifrada")
}

type certResult struct {
	Subject     string    `json:"subject"`
	Issuer      string    `json:"issuer"`
	NIF         string    `json:"nif,omitempty"`
	NotBefore   time.Time `json:"not_before"`
	NotAfter    time.Time `json:"not_after"`
	ChainLength int       `json:"chain_length"`
	Expired     bool      `json:"expired"`
}

func runCertCheck(cmd *cobra.Command, _ []string) error {
	if certPath == "" {
		certPath = os.Getenv("VERIFACTU_CERT_PATH")
	}
	if certPath == "" {
		return fmt.Errorf("indique --cert o VERIFACTU_CERT_PATH")
	}
	info, err := aeat.InspectCertificate(aeat.Credentials{
		CertPath:   certPath,
		KeyPath:    certKeyPath,
		Passphrase: certPassword,
	})
	if err != nil {
		return err
	}
	res := certResult{
		Subject:     info.Subject,
		Issuer:      info.Issuer,
		NIF:         info.NIF,
		NotBefore:   info.NotBefore,
		NotAfter:    info.NotAfter,
		ChainLength: info.ChainLength,
		Expired:     info.Expired(time.Now()),
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Titular:  %s\n", res.Subject)
	fmt.Fprintf(&sb, "Emisor:   %s\n", res.Issuer)
	if res.NIF != "" {
		fmt.Fprintf(&sb, "NIF:      %s\n", res.NIF)
	}
	fmt.Fprintf(&sb, "Vigencia: %s - %s", res.NotBefore.Format(time.RFC3339), res.NotAfter.Format(time.RFC3339))
	if err := emit(cmd.OutOrStdout(), res, sb.String()); err != nil {
		return err
	}
	if res.Expired {
		return fmt.Errorf("el certificado no está vigente (caduca %s)", res.NotAfter.Format("02-01-2006"))
	}
	return nil
}
