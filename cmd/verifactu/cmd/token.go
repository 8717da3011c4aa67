package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jhoicas/Verifactu-api/pkg/config"
	pkgjwt "github.com/jhoicas/Verifactu-api/pkg/jwt"
	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

var (
	tokClient string
	tokNIF    string
	tokRole   string
	tokTTL    int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Emite un token JWT para la API HTTP",
	Long: `Firma un token HS256 con JWT_SECRET para un cliente de la API. El NIF por defecto es
VERIFACTU_ISSUER_NIF y la caducidad JWT_EXPIRATION_MINUTES, igual que en el servicio.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokClient, "client", "", "Identificador del cliente (uuid nuevo si se omite)")
	tokenCmd.Flags().StringVar(&tokNIF, "nif", "", "NIF del obligado (env: VERIFACTU_ISSUER_NIF)")
	tokenCmd.Flags().StringVar(&tokRole, "role", pkgjwt.RoleEmisor, "Rol: emisor o consulta")
	tokenCmd.Flags().IntVar(&tokTTL, "ttl", 0, "Minutos de validez (env: JWT_EXPIRATION_MINUTES)")
}

type tokenResult struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"client_id"`
	NIF       string    `json:"nif"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET no está definido")
	}
	if tokRole != pkgjwt.RoleEmisor && tokRole != pkgjwt.RoleConsulta {
		return fmt.Errorf("rol no admitido %q", tokRole)
	}
	nif := tokNIF
	if nif == "" {
		nif = cfg.Verifactu.IssuerNIF
	}
	if nif == "" {
		return fmt.Errorf("indique --nif o VERIFACTU_ISSUER_NIF")
	}
	if _, err := pkgvf.ValidateTaxID(nif); err != nil {
		return err
	}
	nif = pkgvf.NormalizeTaxID(nif)
	client := tokClient
	if client == "" {
		client = uuid.NewString()
	}
	ttl := tokTTL
	if ttl <= 0 {
		ttl = cfg.JWT.Expiration
	}

	printVerbose("firmando token para %s (%s, %d min)\n", client, tokRole, ttl)
	tok, err := pkgjwt.Generate(cfg.JWT.Secret, client, nif, tokRole, cfg.JWT.Issuer, ttl)
	if err != nil {
		return err
	}
	res := tokenResult{
		Token:     tok,
		ClientID:  client,
		NIF:       nif,
		Role:      tokRole,
		ExpiresAt: time.Now().Add(time.Duration(ttl) * time.Minute).Truncate(time.Second),
	}
	return emit(cmd.OutOrStdout(), res, tok)
}
