package dto

import "github.com/shopspring/decimal"

// PersonaDTO destinatario, tercero o generador: NIF español o identificación extranjera.
type PersonaDTO struct {
	Nombre     string `json:"nombre"`
	NIF        string `json:"nif,omitempty"`
	CodigoPais string `json:"codigo_pais,omitempty"`
	IDType     string `json:"id_type,omitempty"`
	ID         string `json:"id,omitempty"`
}

// IDFacturaDTO identificación de una factura.
type IDFacturaDTO struct {
	NIF      string `json:"nif"`
	NumSerie string `json:"num_serie"`
	Fecha    string `json:"fecha"`
}

// ChainLinkDTO registro anterior de la cadena.
type ChainLinkDTO struct {
	NIF      string `json:"nif"`
	NumSerie string `json:"num_serie"`
	Fecha    string `json:"fecha"`
	Huella   string `json:"huella"`
}

// EncadenamientoDTO primer registro o enlace con el anterior.
type EncadenamientoDTO struct {
	PrimerRegistro bool          `json:"primer_registro,omitempty"`
	Anterior       *ChainLinkDTO `json:"anterior,omitempty"`
}

// DesgloseDTO línea de desglose; los importes admiten número o texto.
type DesgloseDTO struct {
	Impuesto        string           `json:"impuesto,omitempty"`
	ClaveRegimen    string           `json:"clave_regimen,omitempty"`
	Calificacion    string           `json:"calificacion,omitempty"`
	OperacionExenta string           `json:"operacion_exenta,omitempty"`
	Base            decimal.Decimal  `json:"base"`
	Tipo            *decimal.Decimal `json:"tipo,omitempty"`
	Cuota           *decimal.Decimal `json:"cuota,omitempty"`
	BaseACoste      *decimal.Decimal `json:"base_a_coste,omitempty"`
	TipoRecargo     *decimal.Decimal `json:"tipo_recargo,omitempty"`
	CuotaRecargo    *decimal.Decimal `json:"cuota_recargo,omitempty"`
}

// ImporteRectificacionDTO importes de una rectificación por sustitución.
type ImporteRectificacionDTO struct {
	Base    decimal.Decimal  `json:"base"`
	Cuota   decimal.Decimal  `json:"cuota"`
	Recargo *decimal.Decimal `json:"recargo,omitempty"`
}

// InvoiceRequest body para POST /api/v1/invoices.
type InvoiceRequest struct {
	NumSerie             string                   `json:"num_serie"`
	Fecha                string                   `json:"fecha"`
	Tipo                 string                   `json:"tipo,omitempty"` // F1 por defecto
	TipoRectificativa    string                   `json:"tipo_rectificativa,omitempty"`
	Descripcion          string                   `json:"descripcion"`
	RefExterna           string                   `json:"ref_externa,omitempty"`
	FechaOperacion       string                   `json:"fecha_operacion,omitempty"`
	Subsanacion          bool                     `json:"subsanacion,omitempty"`
	RechazoPrevio        bool                     `json:"rechazo_previo,omitempty"`
	Incidencia           bool                     `json:"incidencia,omitempty"`
	Destinatarios        []PersonaDTO             `json:"destinatarios,omitempty"`
	Tercero              *PersonaDTO              `json:"tercero,omitempty"`
	Desglose             []DesgloseDTO            `json:"desglose"`
	FacturasRectificadas []IDFacturaDTO           `json:"facturas_rectificadas,omitempty"`
	FacturasSustituidas  []IDFacturaDTO           `json:"facturas_sustituidas,omitempty"`
	ImporteRectificacion *ImporteRectificacionDTO `json:"importe_rectificacion,omitempty"`
	Encadenamiento       EncadenamientoDTO        `json:"encadenamiento"`
}

// CancellationRequest body para POST /api/v1/cancellations.
type CancellationRequest struct {
	NumSerie          string            `json:"num_serie"`
	Fecha             string            `json:"fecha"`
	RechazoPrevio     bool              `json:"rechazo_previo,omitempty"`
	SinRegistroPrevio bool              `json:"sin_registro_previo,omitempty"`
	Subsanacion       bool              `json:"subsanacion,omitempty"`
	RefExterna        string            `json:"ref_externa,omitempty"`
	Incidencia        bool              `json:"incidencia,omitempty"`
	GeneradoPor       string            `json:"generado_por,omitempty"` // E, D o T
	Generador         *PersonaDTO       `json:"generador,omitempty"`
	Encadenamiento    EncadenamientoDTO `json:"encadenamiento"`
}

// QueryRequest body para POST /api/v1/queries.
type QueryRequest struct {
	Ejercicio       int           `json:"ejercicio,omitempty"`
	Periodo         int           `json:"periodo,omitempty"`
	NumSerie        string        `json:"num_serie,omitempty"`
	Fecha           string        `json:"fecha,omitempty"`
	Contraparte     *PersonaDTO   `json:"contraparte,omitempty"`
	Desde           string        `json:"desde,omitempty"`
	Hasta           string        `json:"hasta,omitempty"`
	RefExterna      string        `json:"ref_externa,omitempty"`
	Huella          string        `json:"huella,omitempty"`
	ClavePaginacion *IDFacturaDTO `json:"clave_paginacion,omitempty"`
	MostrarNombre   bool          `json:"mostrar_nombre,omitempty"`
	MostrarSistema  bool          `json:"mostrar_sistema,omitempty"`
}

// LineaDTO resultado AEAT de un registro.
type LineaDTO struct {
	NumSerie         string `json:"num_serie"`
	Fecha            string `json:"fecha"`
	TipoOperacion    string `json:"tipo_operacion,omitempty"`
	EstadoRegistro   string `json:"estado_registro"`
	CodigoError      string `json:"codigo_error,omitempty"`
	DescripcionError string `json:"descripcion_error,omitempty"`
}

// RegistrationResponse respuesta de altas y anulaciones.
type RegistrationResponse struct {
	CorrelationID            string       `json:"correlation_id"`
	Huella                   string       `json:"huella"`
	FechaHoraHusoGenRegistro string       `json:"fecha_hora_huso_gen_registro"`
	CSV                      string       `json:"csv,omitempty"`
	EstadoEnvio              string       `json:"estado_envio"`
	TiempoEsperaEnvio        int          `json:"tiempo_espera_envio,omitempty"`
	Lineas                   []LineaDTO   `json:"lineas"`
	Siguiente                ChainLinkDTO `json:"siguiente"`
	QRURL                    string       `json:"qr_url,omitempty"`
}

// RegistroDTO registro devuelto por la consulta.
type RegistroDTO struct {
	NumSerie       string `json:"num_serie"`
	Fecha          string `json:"fecha"`
	TipoFactura    string `json:"tipo_factura,omitempty"`
	CuotaTotal     string `json:"cuota_total,omitempty"`
	ImporteTotal   string `json:"importe_total,omitempty"`
	Huella         string `json:"huella,omitempty"`
	FechaHora      string `json:"fecha_hora_huso_gen_registro,omitempty"`
	EstadoRegistro string `json:"estado_registro,omitempty"`
}

// QueryResponse respuesta de POST /api/v1/queries.
type QueryResponse struct {
	Resultado      string        `json:"resultado"`
	HayMas         bool          `json:"hay_mas"`
	Registros      []RegistroDTO `json:"registros"`
	ClaveSiguiente *IDFacturaDTO `json:"clave_siguiente,omitempty"`
}
